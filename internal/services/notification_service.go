package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

// ErrMalformedEvent marks an event that can never be processed and should not be retried.
var ErrMalformedEvent = errors.New("malformed order event")

const (
	notificationTypeOrder   = "order"
	notificationActionOrder = "open_order_details"
)

// NotificationService turns order events into in-app notifications for the buyer.
type NotificationService struct {
	repo repositories.NotificationRepository
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{
		repo: repo,
	}
}

// HandleOrderEvent decodes body as an OrderEvent and stores the matching notification.
func (s *NotificationService) HandleOrderEvent(ctx context.Context, body []byte) error {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.UserID == "" || event.OrderID == "" {
		return fmt.Errorf("%w: missing user or order id", ErrMalformedEvent)
	}

	var title, message string
	switch event.Type {
	case EventOrderPlaced:
		title = "Order Placed"
		message = fmt.Sprintf("Your order %s has been placed successfully.", event.OrderNumber)
	case EventOrderCancelled:
		title = "Order Cancelled"
		message = fmt.Sprintf("Your order %s has been cancelled.", event.OrderNumber)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, event.Type)
	}

	n := &models.Notification{
		UserID:        event.UserID,
		Title:         title,
		Message:       message,
		Type:          notificationTypeOrder,
		ReferenceID:   event.OrderID,
		ReferenceType: notificationTypeOrder,
		Action:        notificationActionOrder,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	slog.InfoContext(ctx, "notification created", "user_id", event.UserID, "order_id", event.OrderID, "type", event.Type)
	return nil
}
