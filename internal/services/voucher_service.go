package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

// VoucherService validates discount codes and accounts for their usage.
type VoucherService struct {
	store         repositories.Store
	clampDiscount bool
}

// NewVoucherService creates a new VoucherService. With clampDiscount set, no discount
// ever exceeds the subtotal it is applied to.
func NewVoucherService(store repositories.Store, clampDiscount bool) *VoucherService {
	return &VoucherService{
		store:         store,
		clampDiscount: clampDiscount,
	}
}

// VoucherPreview is the result of checking a code without redeeming it.
type VoucherPreview struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	DiscountType       string          `json:"discount_type"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	CalculatedDiscount decimal.Decimal `json:"calculated_discount"`
}

// EvaluateVoucher checks v against subtotal at time now and returns the discount it grants.
// A nil voucher is reported as not found. The first failing rule wins: existence and
// validity window, then minimum order amount, then usage limit.
func EvaluateVoucher(v *models.Voucher, subtotal decimal.Decimal, now time.Time, clamp bool) (decimal.Decimal, error) {
	if v == nil || !v.IsActive || now.Before(v.ValidFrom) || now.After(v.ValidUntil) {
		return decimal.Zero, newError(CodeVoucherNotFound, "Invalid or expired voucher code")
	}
	if subtotal.LessThan(v.MinimumOrderAmount) {
		return decimal.Zero, newError(CodeMinimumNotMet, "Minimum order amount of ₱%s required", v.MinimumOrderAmount.StringFixed(2))
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return decimal.Zero, newError(CodeUsageLimitExceeded, "Voucher usage limit exceeded")
	}

	var discount decimal.Decimal
	switch v.DiscountType {
	case models.DiscountTypePercentage:
		discount = subtotal.Mul(v.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if v.MaximumDiscountAmount.Valid && discount.GreaterThan(v.MaximumDiscountAmount.Decimal) {
			discount = v.MaximumDiscountAmount.Decimal
		}
	case models.DiscountTypeFixed:
		discount = v.DiscountValue
	default:
		return decimal.Zero, newError(CodeVoucherNotFound, "Invalid or expired voucher code")
	}

	if clamp && discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2), nil
}

// Preview evaluates code against subtotal without touching used_count.
func (s *VoucherService) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*VoucherPreview, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(CodeInvalidInput, "Voucher code is required")
	}
	if subtotal.IsNegative() {
		return nil, newError(CodeInvalidInput, "Subtotal must not be negative")
	}

	voucher, err := s.store.Vouchers().GetActiveByCode(ctx, code, false)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, internalError("Failed to validate voucher", err)
	}

	discount, err := EvaluateVoucher(voucher, subtotal, time.Now(), s.clampDiscount)
	if err != nil {
		return nil, err
	}

	return &VoucherPreview{
		ID:                 voucher.ID,
		Code:               voucher.Code,
		Title:              voucher.Title,
		Description:        voucher.Description,
		DiscountType:       voucher.DiscountType,
		DiscountValue:      voucher.DiscountValue,
		CalculatedDiscount: discount,
	}, nil
}

// Redeem locks the voucher row inside tx, evaluates it and consumes one use.
// The caller's transaction decides whether the use sticks.
func (s *VoucherService) Redeem(ctx context.Context, tx repositories.Store, code string, subtotal decimal.Decimal) (*models.Voucher, decimal.Decimal, error) {
	voucher, err := tx.Vouchers().GetActiveByCode(ctx, strings.TrimSpace(code), true)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, decimal.Zero, internalError("Failed to validate voucher", err)
	}

	discount, err := EvaluateVoucher(voucher, subtotal, time.Now(), s.clampDiscount)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Vouchers().IncrementUsage(ctx, voucher.ID); err != nil {
		if errors.Is(err, repositories.ErrUsageLimitReached) {
			return nil, decimal.Zero, newError(CodeUsageLimitExceeded, "Voucher usage limit exceeded")
		}
		return nil, decimal.Zero, internalError("Failed to apply voucher", err)
	}
	return voucher, discount, nil
}
