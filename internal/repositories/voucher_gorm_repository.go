package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// GORMVoucherRepository is a GORM implementation of VoucherRepository.
type GORMVoucherRepository struct {
	db *gorm.DB
}

// NewGORMVoucherRepository creates a new instance of GORMVoucherRepository.
func NewGORMVoucherRepository(db *gorm.DB) *GORMVoucherRepository {
	return &GORMVoucherRepository{
		db: db,
	}
}

// GetActiveByCode finds an active voucher by code. The validity window is checked by the caller.
func (r *GORMVoucherRepository) GetActiveByCode(ctx context.Context, code string, forUpdate bool) (*models.Voucher, error) {
	q := r.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var voucher models.Voucher
	if err := q.Where("code = ? AND is_active = ?", code, true).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("voucher %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get voucher %q: %w", code, err)
	}
	return &voucher, nil
}

// IncrementUsage bumps used_count unless the usage limit is already reached.
func (r *GORMVoucherRepository) IncrementUsage(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment usage of voucher %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("voucher %s: %w", id, ErrUsageLimitReached)
	}
	return nil
}

// ReleaseUsage gives one use back, never dropping used_count below zero.
func (r *GORMVoucherRepository) ReleaseUsage(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND used_count > 0", id).
		Update("used_count", gorm.Expr("used_count - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to release usage of voucher %s: %w", id, res.Error)
	}
	return nil
}
