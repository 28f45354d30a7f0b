package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace/internal/database"
	"marketplace/internal/delivery"
	"marketplace/internal/handlers"
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
	"marketplace/internal/services"
)

const jwtSecret = "test_jwt_secret"

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := repositories.NewGORMStore(db)
	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), jwtSecret)
	voucherService := services.NewVoucherService(store, true)
	orderService := services.NewOrderService(store, voucherService, nil, decimal.NewFromInt(50))
	deliveryService := services.NewDeliveryService(store, delivery.DefaultSchedule, decimal.NewFromInt(50), nil, time.Minute)

	app := fiber.New()
	apiV1 := app.Group("/api/v1", middleware.AuthRequired(authService))
	handlers.NewOrderHandler(orderService, voucherService, deliveryService).RegisterRoutes(apiV1)

	seed(t, db)
	return app, db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	lat, lng := 14.5995, 120.9842
	pickupLat := 14.6995
	require.NoError(t, db.Create(&models.User{ID: "u1", Email: "buyer@example.com", IsActive: true}).Error)
	require.NoError(t, db.Create(&models.User{ID: "u2", Email: "other@example.com", IsActive: true}).Error)
	require.NoError(t, db.Create(&models.UserAddress{ID: "a1", UserID: "u1", StreetAddress: "12 Mabini St", City: "Quezon City", Latitude: &lat, Longitude: &lng}).Error)
	require.NoError(t, db.Create(&models.Seller{ID: "s1", StoreName: "Fresh Farm"}).Error)
	require.NoError(t, db.Create(&models.SellerAddress{ID: "sa1", SellerID: "s1", Type: models.SellerAddressPickup, Latitude: &pickupLat, Longitude: &lng}).Error)
	require.NoError(t, db.Create(&models.Product{ID: "p1", SellerID: "s1", Name: "Mango", Price: decimal.NewFromInt(100), StockQuantity: 3, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Voucher{
		ID: "v1", Code: "HALF", DiscountType: models.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(50),
		MaximumDiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(200)), IsActive: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}).Error)
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func token(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Data    json.RawMessage   `json:"data"`
}

func do(t *testing.T, app *fiber.App, method, path, userID string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestOrdersRequireAuthentication(t *testing.T) {
	app, _ := setupApp(t)

	status, env := do(t, app, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
}

func TestCreateCancelAndFetchOrder(t *testing.T) {
	app, db := setupApp(t)

	status, env := do(t, app, http.MethodPost, "/api/v1/orders/create", "u1", fiber.Map{
		"items":             []fiber.Map{{"productId": "p1", "quantity": 2, "preparationOptions": fiber.Map{"slice": true}}},
		"deliveryAddressId": "a1",
		"voucherCode":       "HALF",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created struct {
		OrderID     string          `json:"orderId"`
		OrderNumber string          `json:"orderNumber"`
		TotalAmount decimal.Decimal `json:"totalAmount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.OrderNumber)
	assert.Equal(t, "150.00", created.TotalAmount.StringFixed(2))

	status, env = do(t, app, http.MethodGet, "/api/v1/orders/"+created.OrderID, "u1", nil)
	assert.Equal(t, http.StatusOK, status)
	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 1)

	status, env = do(t, app, http.MethodGet, "/api/v1/orders/"+created.OrderID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ORDER_NOT_FOUND", env.Code)

	status, env = do(t, app, http.MethodGet, "/api/v1/orders?status=pending", "u1", nil)
	assert.Equal(t, http.StatusOK, status)
	var page services.OrderPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 1, page.Pagination.TotalItems)

	status, env = do(t, app, http.MethodPut, "/api/v1/orders/"+created.OrderID+"/cancel", "u1", nil)
	assert.Equal(t, http.StatusOK, status)
	var cancelled services.CancelledOrder
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, "Cancelled by customer", cancelled.CancellationReason)

	status, env = do(t, app, http.MethodPut, "/api/v1/orders/"+created.OrderID+"/cancel", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STATE_TRANSITION", env.Code)

	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", "p1").Error)
	assert.Equal(t, 3, product.StockQuantity)
}

func TestCreateOrderErrors(t *testing.T) {
	app, _ := setupApp(t)

	status, env := do(t, app, http.MethodPost, "/api/v1/orders/create", "u1", fiber.Map{
		"items":             []fiber.Map{{"productId": "p1", "quantity": 0}},
		"deliveryAddressId": "a1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", env.Code)
	assert.Contains(t, env.Errors, "items[0].quantity")

	status, env = do(t, app, http.MethodPost, "/api/v1/orders/create", "u1", fiber.Map{
		"items":             []fiber.Map{{"productId": "p1", "quantity": 4}},
		"deliveryAddressId": "a1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)
	assert.Contains(t, env.Message, "Mango")

	status, env = do(t, app, http.MethodPost, "/api/v1/orders/create", "u2", fiber.Map{
		"items":             []fiber.Map{{"productId": "p1", "quantity": 1}},
		"deliveryAddressId": "a1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ADDRESS", env.Code)
}

func TestValidateVoucher(t *testing.T) {
	app, db := setupApp(t)

	status, env := do(t, app, http.MethodPost, "/api/v1/orders/validate-voucher", "u1", fiber.Map{"code": "HALF", "subtotal": 10000})
	require.Equal(t, http.StatusOK, status)
	var body struct {
		Voucher services.VoucherPreview `json:"voucher"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "200.00", body.Voucher.CalculatedDiscount.StringFixed(2))

	var voucher models.Voucher
	require.NoError(t, db.First(&voucher, "id = ?", "v1").Error)
	assert.Equal(t, 0, voucher.UsedCount)

	status, env = do(t, app, http.MethodPost, "/api/v1/orders/validate-voucher", "u1", fiber.Map{"code": "NOPE", "subtotal": 100})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "VOUCHER_NOT_FOUND", env.Code)

	status, env = do(t, app, http.MethodPost, "/api/v1/orders/validate-voucher", "u1", fiber.Map{"code": "HALF"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", env.Code)
}

func TestCalculateDeliveryFees(t *testing.T) {
	app, _ := setupApp(t)

	status, env := do(t, app, http.MethodPost, "/api/v1/orders/calculate-delivery-fees", "u1", fiber.Map{
		"deliveryAddressId": "a1",
		"sellerIds":         []string{"s1"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var quotes map[string]services.FeeQuote
	require.NoError(t, json.Unmarshal(env.Data, &quotes))
	require.Contains(t, quotes, "s1")
	assert.Equal(t, "Fresh Farm", quotes["s1"].StoreName)
	assert.Equal(t, "65.00", quotes["s1"].DeliveryFee.StringFixed(2))

	status, env = do(t, app, http.MethodPost, "/api/v1/orders/calculate-delivery-fees", "u1", fiber.Map{
		"deliveryAddressId": "a1",
		"sellerIds":         []string{"unknown"},
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "PICKUP_ADDRESS_NOT_FOUND", env.Code)
}
