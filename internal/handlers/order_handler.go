package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"marketplace/internal/middleware"
	"marketplace/internal/services"
)

// statusByCode maps service error codes to HTTP statuses.
var statusByCode = map[services.ErrorCode]int{
	services.CodeInvalidInput:           fiber.StatusBadRequest,
	services.CodeInvalidAddress:         fiber.StatusBadRequest,
	services.CodeInvalidCoordinates:     fiber.StatusBadRequest,
	services.CodePickupAddressNotFound:  fiber.StatusNotFound,
	services.CodeProductUnavailable:     fiber.StatusBadRequest,
	services.CodeInsufficientStock:      fiber.StatusBadRequest,
	services.CodeVoucherNotFound:        fiber.StatusNotFound,
	services.CodeMinimumNotMet:          fiber.StatusBadRequest,
	services.CodeUsageLimitExceeded:     fiber.StatusBadRequest,
	services.CodeOrderNotFound:          fiber.StatusNotFound,
	services.CodeInvalidStateTransition: fiber.StatusBadRequest,
	services.CodeConcurrencyViolation:   fiber.StatusConflict,
	services.CodeInternal:               fiber.StatusInternalServerError,
}

type orderItemRequest struct {
	ProductID          string          `json:"productId" validate:"required"`
	Quantity           int             `json:"quantity" validate:"gt=0"`
	PreparationOptions json.RawMessage `json:"preparationOptions"`
}

type createOrderRequest struct {
	Items             []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddressID string             `json:"deliveryAddressId" validate:"required"`
	DeliveryNotes     string             `json:"deliveryNotes" validate:"max=500"`
	VoucherCode       string             `json:"voucherCode" validate:"max=64"`
	PaymentMethod     string             `json:"paymentMethod" validate:"max=32"`
	ClearCart         bool               `json:"clearCart"`
}

type validateVoucherRequest struct {
	Code     string           `json:"code" validate:"required"`
	Subtotal *decimal.Decimal `json:"subtotal" validate:"required"`
}

type deliveryFeesRequest struct {
	DeliveryAddressID string   `json:"deliveryAddressId" validate:"required"`
	SellerIDs         []string `json:"sellerIds" validate:"required,min=1,dive,required"`
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orders   *services.OrderService
	vouchers *services.VoucherService
	delivery *services.DeliveryService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders *services.OrderService, vouchers *services.VoucherService, delivery *services.DeliveryService) *OrderHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &OrderHandler{
		orders:   orders,
		vouchers: vouchers,
		delivery: delivery,
		validate: validate,
	}
}

// RegisterRoutes registers the order routes. router must already authenticate the caller.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Post("/create", h.HandleCreateOrder)
	orderRoutes.Post("/validate-voucher", h.HandleValidateVoucher)
	orderRoutes.Post("/calculate-delivery-fees", h.HandleCalculateDeliveryFees)
	orderRoutes.Get("/:orderId", h.HandleGetOrder)
	orderRoutes.Put("/:orderId/cancel", h.HandleCancelOrder)
}

// HandleCreateOrder places an order for the authenticated buyer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	in := services.PlaceOrderInput{
		UserID:            middleware.UserID(c),
		DeliveryAddressID: req.DeliveryAddressID,
		DeliveryNotes:     req.DeliveryNotes,
		VoucherCode:       req.VoucherCode,
		PaymentMethod:     req.PaymentMethod,
		ClearCart:         req.ClearCart,
		Items:             make([]services.OrderItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, services.OrderItemInput{
			ProductID:          item.ProductID,
			Quantity:           item.Quantity,
			PreparationOptions: item.PreparationOptions,
		})
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order created successfully",
		"data": fiber.Map{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"totalAmount": order.TotalAmount,
		},
	})
}

// HandleCancelOrder cancels one of the buyer's orders.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	result, err := h.orders.CancelOrder(c.UserContext(), middleware.UserID(c), c.Params("orderId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order cancelled successfully",
		"data":    result,
	})
}

// HandleListOrders returns a page of the buyer's orders.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	page, err := h.orders.ListOrders(c.UserContext(), middleware.UserID(c), services.ListOrdersInput{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Status: c.Query("status", "all"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

// HandleGetOrder returns one order with its items and history.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.orders.GetOrder(c.UserContext(), middleware.UserID(c), c.Params("orderId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

// HandleValidateVoucher previews a voucher discount without redeeming it.
func (h *OrderHandler) HandleValidateVoucher(c *fiber.Ctx) error {
	var req validateVoucherRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	preview, err := h.vouchers.Preview(c.UserContext(), req.Code, *req.Subtotal)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"voucher": preview},
	})
}

// HandleCalculateDeliveryFees quotes a delivery fee per seller.
func (h *OrderHandler) HandleCalculateDeliveryFees(c *fiber.Ctx) error {
	var req deliveryFeesRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	quotes, err := h.delivery.QuoteFees(c.UserContext(), middleware.UserID(c), req.DeliveryAddressID, req.SellerIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    quotes,
	})
}

// bind parses and validates the body into dst. When it reports false the 400 response
// has been written and the handler should return the accompanying error.
func (h *OrderHandler) bind(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    services.CodeInvalidInput,
			"message": "Invalid request body",
		})
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"code":    services.CodeInvalidInput,
				"message": err.Error(),
			})
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[fieldPath(e)] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    services.CodeInvalidInput,
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}

// fieldPath drops the root struct name from the validator namespace: items[0].quantity.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func respondError(c *fiber.Ctx, err error) error {
	code := services.ErrorCodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	message := "Internal server error"
	var de *services.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"message": message,
	})
}
