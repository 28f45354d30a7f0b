package repositories

import "context"

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	RemoveProducts(ctx context.Context, userID string, productIDs []string) error
}
