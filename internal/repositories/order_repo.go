package repositories

import (
	"context"
	"time"

	"marketplace/internal/models"
)

// OrderFilter narrows a buyer's order listing.
type OrderFilter struct {
	Status models.OrderStatus // empty means every status
	Limit  int
	Offset int
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, order *models.Order) error
	AddStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	// GetForUser loads an order owned by userID with its items. With forUpdate the
	// order row stays locked until the transaction ends.
	GetForUser(ctx context.Context, userID, orderID string, forUpdate bool) (*models.Order, error)
	GetDetailsForUser(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, filter OrderFilter) ([]models.Order, int64, error)
	MarkCancelled(ctx context.Context, orderID, reason string, at time.Time) error
	CancelItems(ctx context.Context, orderID string) error
	// PreorderItemIDs reports which of the given order items belong to a pre-order.
	PreorderItemIDs(ctx context.Context, orderItemIDs []string) (map[string]bool, error)
}
