package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace/internal/models"
)

// Routing keys of the order events published after a commit.
const (
	EventOrderPlaced    = "order.placed"
	EventOrderCancelled = "order.cancelled"
)

// EventPublisher delivers an encoded event under a routing key.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// OrderEvent is the payload of order.* messages.
type OrderEvent struct {
	EventID     string             `json:"event_id"`
	Type        string             `json:"type"`
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	Status      models.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func newOrderEvent(eventType string, order *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  at,
	}
}

// publish sends the event if a publisher is configured. The order is already committed,
// so failures are only logged.
func publish(ctx context.Context, p EventPublisher, event OrderEvent) {
	if p == nil {
		slog.DebugContext(ctx, "event publisher not configured, skipping", "type", event.Type, "order_id", event.OrderID)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal order event", "type", event.Type, "order_id", event.OrderID, "error", err)
		return
	}
	if err := p.Publish(ctx, event.Type, body); err != nil {
		slog.WarnContext(ctx, "failed to publish order event", "type", event.Type, "order_id", event.OrderID, "error", err)
		return
	}
	slog.InfoContext(ctx, "order event published", "type", event.Type, "order_id", event.OrderID)
}
