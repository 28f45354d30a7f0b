package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts the order row and its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// AddStatusHistory appends a status history entry.
func (r *GORMOrderRepository) AddStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to add status history for order %s: %w", entry.OrderID, err)
	}
	return nil
}

// GetForUser loads an order of userID with its items.
func (r *GORMOrderRepository) GetForUser(ctx context.Context, userID, orderID string, forUpdate bool) (*models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := q.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", orderID, err)
	}
	return &order, nil
}

// GetDetailsForUser loads an order with items, voucher and newest-first status history.
func (r *GORMOrderRepository) GetDetailsForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Voucher").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order details %s: %w", orderID, err)
	}
	return &order, nil
}

// ListByUser returns one page of the buyer's orders, newest first, and the total count.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string, filter OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders of user %s: %w", userID, err)
	}

	var orders []models.Order
	err := q.Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders of user %s: %w", userID, err)
	}
	return orders, total, nil
}

// MarkCancelled sets the cancelled status, timestamp and reason.
func (r *GORMOrderRepository) MarkCancelled(ctx context.Context, orderID, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":              models.OrderStatusCancelled,
			"cancelled_at":        at,
			"cancellation_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// CancelItems tags every item of the order as cancelled.
func (r *GORMOrderRepository) CancelItems(ctx context.Context, orderID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Update("item_status", models.ItemStatusCancelled).Error
	if err != nil {
		return fmt.Errorf("failed to cancel items of order %s: %w", orderID, err)
	}
	return nil
}

// PreorderItemIDs returns the subset of orderItemIDs linked to a pre-order record.
func (r *GORMOrderRepository) PreorderItemIDs(ctx context.Context, orderItemIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(orderItemIDs) == 0 {
		return result, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.PreorderItem{}).
		Where("order_item_id IN ?", orderItemIDs).
		Pluck("order_item_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up preorder items: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
