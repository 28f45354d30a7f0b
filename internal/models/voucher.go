package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Voucher is a discount code. UsedCount never exceeds UsageLimit when a limit is set.
type Voucher struct {
	ID                    string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code                  string              `json:"code" gorm:"uniqueIndex;type:varchar(64);not null"`
	Title                 string              `json:"title" gorm:"type:varchar(255)"`
	Description           string              `json:"description" gorm:"type:text"`
	DiscountType          string              `json:"discount_type" gorm:"type:varchar(16);not null"`
	DiscountValue         decimal.Decimal     `json:"discount_value" gorm:"type:decimal(12,2);not null"`
	MinimumOrderAmount    decimal.Decimal     `json:"minimum_order_amount" gorm:"type:decimal(12,2);not null"`
	MaximumDiscountAmount decimal.NullDecimal `json:"maximum_discount_amount" gorm:"type:decimal(12,2)"`
	UsageLimit            *int                `json:"usage_limit"`
	UsedCount             int                 `json:"used_count" gorm:"not null"`
	IsActive              bool                `json:"is_active" gorm:"not null"`
	ValidFrom             time.Time           `json:"valid_from"`
	ValidUntil            time.Time           `json:"valid_until"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}
