package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

const (
	placedNote          = "Order placed successfully"
	customerCancelNote  = "Cancelled by customer"
	defaultListPageSize = 10
	maxListPageSize     = 50
)

var tracer = otel.Tracer("marketplace/services")

// OrderItemInput is one requested product line.
type OrderItemInput struct {
	ProductID          string
	Quantity           int
	PreparationOptions json.RawMessage
}

// PlaceOrderInput carries everything needed to place an order for UserID.
type PlaceOrderInput struct {
	UserID            string
	Items             []OrderItemInput
	DeliveryAddressID string
	DeliveryNotes     string
	VoucherCode       string
	PaymentMethod     string
	ClearCart         bool
}

// CancelledOrder summarizes a successful cancellation.
type CancelledOrder struct {
	OrderID            string    `json:"orderId"`
	OrderNumber        string    `json:"orderNumber"`
	CancelledAt        time.Time `json:"cancelledAt"`
	CancellationReason string    `json:"cancellationReason"`
}

// ListOrdersInput selects one page of a buyer's orders. Status may be empty or "all".
type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
}

// Pagination describes where a page sits in the full listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// OrderPage is one page of orders.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// OrderService handles order placement and the buyer side of the order lifecycle.
type OrderService struct {
	store       repositories.Store
	vouchers    *VoucherService
	publisher   EventPublisher
	deliveryFee decimal.Decimal
}

// NewOrderService creates a new OrderService. deliveryFee is the flat fee charged on every
// order; publisher may be nil.
func NewOrderService(store repositories.Store, vouchers *VoucherService, publisher EventPublisher, deliveryFee decimal.Decimal) *OrderService {
	return &OrderService{
		store:       store,
		vouchers:    vouchers,
		publisher:   publisher,
		deliveryFee: deliveryFee,
	}
}

// PlaceOrder validates stock and voucher and persists the order with its items in a
// single transaction. Nothing is written when any step fails.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (order *models.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(
		attribute.String("user.id", in.UserID),
		attribute.Int("order.item_count", len(in.Items)),
	))
	defer func() { endSpan(span, err) }()

	if err := validatePlaceOrder(in); err != nil {
		return nil, err
	}

	address, err := s.store.Addresses().GetUserAddress(ctx, in.UserID, in.DeliveryAddressID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeInvalidAddress, "Invalid delivery address")
		}
		return nil, s.fail(ctx, "Failed to create order", err, "user_id", in.UserID)
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCashOnDelivery
	}

	now := time.Now()
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		subtotal := decimal.Zero
		reserved := make(map[string]int, len(in.Items))
		items := make([]models.OrderItem, 0, len(in.Items))

		products, err := lockProducts(ctx, tx, in.Items)
		if err != nil {
			return err
		}

		for _, item := range in.Items {
			product := products[item.ProductID]
			if item.Quantity > product.StockQuantity-reserved[product.ID] {
				return newError(CodeInsufficientStock, "Insufficient stock for %s. Available: %d", product.Name, product.StockQuantity)
			}
			reserved[product.ID] += item.Quantity

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
			subtotal = subtotal.Add(lineTotal)
			items = append(items, models.OrderItem{
				ID:                 uuid.NewString(),
				ProductID:          product.ID,
				SellerID:           product.SellerID,
				Quantity:           item.Quantity,
				UnitPrice:          product.Price,
				TotalPrice:         lineTotal,
				PreparationOptions: string(item.PreparationOptions),
				ItemStatus:         models.ItemStatusPending,
			})
		}

		discount := decimal.Zero
		var voucherID *string
		if code := strings.TrimSpace(in.VoucherCode); code != "" {
			voucher, d, err := s.vouchers.Redeem(ctx, tx, code, subtotal)
			if err != nil {
				return err
			}
			discount = d
			voucherID = &voucher.ID
		}

		order = &models.Order{
			ID:                uuid.NewString(),
			OrderNumber:       newOrderNumber(now),
			UserID:            in.UserID,
			Status:            models.OrderStatusPending,
			PaymentMethod:     paymentMethod,
			PaymentStatus:     models.PaymentStatusPending,
			Subtotal:          subtotal.Round(2),
			DeliveryFee:       s.deliveryFee.Round(2),
			VoucherDiscount:   discount,
			TotalAmount:       subtotal.Add(s.deliveryFee).Sub(discount).Round(2),
			VoucherID:         voucherID,
			DeliveryAddressID: address.ID,
			DeliveryAddress:   address.Snapshot(),
			DeliveryNotes:     in.DeliveryNotes,
			CreatedAt:         now,
			UpdatedAt:         now,
			Items:             items,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		for _, item := range items {
			if err := tx.Products().DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repositories.ErrStockConflict) {
					return &DomainError{Code: CodeConcurrencyViolation, Message: "Stock changed while the order was being placed", Err: err}
				}
				return err
			}
		}

		if err := tx.Orders().AddStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    models.OrderStatusPending,
			Notes:     placedNote,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if in.ClearCart {
			productIDs := make([]string, 0, len(reserved))
			for id := range reserved {
				productIDs = append(productIDs, id)
			}
			if err := tx.Carts().RemoveProducts(ctx, in.UserID, productIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "Failed to create order", err, "user_id", in.UserID)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	slog.InfoContext(ctx, "order placed", "order_id", order.ID, "order_number", order.OrderNumber, "user_id", in.UserID, "total", order.TotalAmount.StringFixed(2))
	publish(ctx, s.publisher, newOrderEvent(EventOrderPlaced, order, now))
	return order, nil
}

// lockProducts locks every distinct product in ID order so that concurrent
// orders over the same products acquire row locks in the same sequence.
func lockProducts(ctx context.Context, tx repositories.Store, items []OrderItemInput) (map[string]*models.Product, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	products := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		product, err := tx.Products().GetActiveForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, newError(CodeProductUnavailable, "Product %s is not available", id)
			}
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

// CancelOrder cancels a pending or confirmed order of userID, returning its stock and
// voucher use.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (result *CancelledOrder, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("order.id", orderID),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(orderID) == "" {
		return nil, newError(CodeInvalidInput, "Order ID is required")
	}

	now := time.Now()
	var order *models.Order
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		order, err = tx.Orders().GetForUser(ctx, userID, orderID, true)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return newError(CodeOrderNotFound, "Order not found")
			}
			return err
		}
		if !models.CanTransition(order.Status, models.OrderStatusCancelled) {
			return newError(CodeInvalidStateTransition, "Order cannot be cancelled. Current status: %s", order.Status)
		}

		if err := tx.Orders().MarkCancelled(ctx, order.ID, customerCancelNote, now); err != nil {
			return err
		}

		itemIDs := make([]string, 0, len(order.Items))
		for _, item := range order.Items {
			itemIDs = append(itemIDs, item.ID)
		}
		preorders, err := tx.Orders().PreorderItemIDs(ctx, itemIDs)
		if err != nil {
			return err
		}
		for _, item := range order.Items {
			if preorders[item.ID] {
				continue
			}
			if err := tx.Products().RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Orders().CancelItems(ctx, order.ID); err != nil {
			return err
		}

		if err := tx.Orders().AddStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    models.OrderStatusCancelled,
			Notes:     customerCancelNote,
			UpdatedBy: &userID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if order.VoucherID != nil {
			return tx.Vouchers().ReleaseUsage(ctx, *order.VoucherID)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "Failed to cancel order", err, "user_id", userID, "order_id", orderID)
	}

	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancellationReason = customerCancelNote
	slog.InfoContext(ctx, "order cancelled", "order_id", order.ID, "user_id", userID)
	publish(ctx, s.publisher, newOrderEvent(EventOrderCancelled, order, now))

	return &CancelledOrder{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		CancelledAt:        now,
		CancellationReason: customerCancelNote,
	}, nil
}

// GetOrder returns an order of userID with items, voucher and status history.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.store.Orders().GetDetailsForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeOrderNotFound, "Order not found")
		}
		return nil, s.fail(ctx, "Failed to fetch order details", err, "user_id", userID, "order_id", orderID)
	}
	return order, nil
}

// ListOrders returns one page of userID's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, in ListOrdersInput) (*OrderPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = defaultListPageSize
	}
	if limit > maxListPageSize {
		limit = maxListPageSize
	}

	filter := repositories.OrderFilter{Limit: limit, Offset: (page - 1) * limit}
	if in.Status != "" && in.Status != "all" {
		status := models.OrderStatus(in.Status)
		if !status.Valid() {
			return nil, newError(CodeInvalidInput, "Unknown order status %q", in.Status)
		}
		filter.Status = status
	}

	orders, total, err := s.store.Orders().ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, s.fail(ctx, "Failed to fetch orders", err, "user_id", userID)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &OrderPage{
		Orders: orders,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalItems:  total,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}

// fail converts err into a DomainError, logging it when it is not a domain failure.
func (s *OrderService) fail(ctx context.Context, message string, err error, attrs ...any) *DomainError {
	de := asDomainError(err, message)
	if de.Code == CodeInternal || de.Code == CodeConcurrencyViolation {
		slog.ErrorContext(ctx, message, append(attrs, "code", de.Code, "error", err)...)
	}
	return de
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return newError(CodeInvalidInput, "User ID is required")
	}
	if len(in.Items) == 0 {
		return newError(CodeInvalidInput, "Order must contain at least one item")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return newError(CodeInvalidInput, "Item %d has no product ID", i+1)
		}
		if item.Quantity <= 0 {
			return newError(CodeInvalidInput, "Item %d must have a quantity greater than zero", i+1)
		}
		if len(item.PreparationOptions) > 0 && !json.Valid(item.PreparationOptions) {
			return newError(CodeInvalidInput, "Item %d has malformed preparation options", i+1)
		}
	}
	if strings.TrimSpace(in.DeliveryAddressID) == "" {
		return newError(CodeInvalidInput, "Delivery address ID is required")
	}
	return nil
}

// newOrderNumber returns ORD, the UTC timestamp and 8 random hex characters.
func newOrderNumber(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD%s%s", at.UTC().Format("20060102150405"), strings.ToUpper(id[:8]))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ErrorCodeOf(err)))
	}
	span.End()
}
