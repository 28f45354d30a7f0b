package repositories

import (
	"context"

	"marketplace/internal/models"
)

// ProductRepository defines the stock operations of the order path.
type ProductRepository interface {
	// GetActiveForUpdate loads an active product and holds an exclusive row lock on it
	// until the surrounding transaction ends.
	GetActiveForUpdate(ctx context.Context, id string) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
	RestoreStock(ctx context.Context, id string, quantity int) error
}
