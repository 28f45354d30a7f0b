package repositories

import (
	"context"

	"marketplace/internal/models"
)

// VoucherRepository defines the interface for voucher data access.
type VoucherRepository interface {
	GetActiveByCode(ctx context.Context, code string, forUpdate bool) (*models.Voucher, error)
	IncrementUsage(ctx context.Context, id string) error
	ReleaseUsage(ctx context.Context, id string) error
}
