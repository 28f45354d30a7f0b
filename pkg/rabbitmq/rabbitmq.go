// Package rabbitmq publishes and consumes order events over a topic exchange.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// Config holds RabbitMQ connection details and the topology to declare.
type Config struct {
	URL        string
	Exchange   string // topic exchange the events go to
	Queue      string // queue the consumer reads
	BindingKey string // pattern binding Queue to Exchange
}

// DefaultConfig returns the order event topology for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:        url,
		Exchange:   "orders",
		Queue:      "order_notifications",
		BindingKey: "order.*",
	}
}

// NewClient connects to RabbitMQ and declares the exchange, queue and binding.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	slog.Info("RabbitMQ client connected", "exchange", cfg.Exchange, "queue", cfg.Queue)

	return &Client{
		conn:    conn,
		channel: ch,
		cfg:     cfg,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.BindingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s: %w", cfg.Queue, cfg.Exchange, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to the exchange under routingKey.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	err := c.channel.Publish(c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// Handler processes one message body. Returning an error wrapped with Discard drops the
// message; any other error requeues it.
type Handler func(ctx context.Context, routingKey string, body []byte) error

type discardError struct{ err error }

func (e discardError) Error() string { return e.err.Error() }
func (e discardError) Unwrap() error { return e.err }

// Discard marks err as permanent: the message will be rejected without requeue.
func Discard(err error) error {
	if err == nil {
		return nil
	}
	return discardError{err: err}
}

// IsDiscard reports whether err was marked with Discard.
func IsDiscard(err error) bool {
	var d discardError
	return errors.As(err, &d)
}

// ConsumeOrderEvents reads the configured queue until ctx is cancelled or the channel
// closes. It returns once the consumer is registered.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler Handler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("waiting for order events", "queue", c.cfg.Queue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("order event channel closed")
					return
				}
				settle(ctx, msg, handler)
			}
		}
	}()

	return nil
}

// settle runs handler for msg and acknowledges it according to the outcome.
func settle(ctx context.Context, msg amqp.Delivery, handler Handler) {
	err := handler(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			slog.Error("failed to ack message", "delivery_tag", msg.DeliveryTag, "error", ackErr)
		}
	case IsDiscard(err):
		slog.Warn("discarding message", "delivery_tag", msg.DeliveryTag, "routing_key", msg.RoutingKey, "error", err)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			slog.Error("failed to nack message", "delivery_tag", msg.DeliveryTag, "error", nackErr)
		}
	default:
		slog.Error("error processing message, requeueing", "delivery_tag", msg.DeliveryTag, "routing_key", msg.RoutingKey, "error", err)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			slog.Error("failed to nack message", "delivery_tag", msg.DeliveryTag, "error", nackErr)
		}
	}
}
