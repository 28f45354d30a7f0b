package services_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace/internal/database"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

type fixture struct {
	db    *gorm.DB
	store *repositories.GORMStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &fixture{db: db, store: repositories.NewGORMStore(db)}
}

func ptr[T any](v T) *T { return &v }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) user(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.User{ID: id, Email: id + "@example.com", IsActive: true}).Error)
}

func (f *fixture) address(t *testing.T, id, userID string, lat, lng *float64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.UserAddress{
		ID:            id,
		UserID:        userID,
		RecipientName: "Juan Dela Cruz",
		PhoneNumber:   "09170000000",
		StreetAddress: "12 Mabini St",
		Barangay:      "San Roque",
		City:          "Quezon City",
		Province:      "Metro Manila",
		PostalCode:    "1100",
		Landmark:      "near the chapel",
		Latitude:      lat,
		Longitude:     lng,
	}).Error)
}

func (f *fixture) seller(t *testing.T, id, storeName string, lat, lng *float64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Seller{ID: id, StoreName: storeName}).Error)
	require.NoError(t, f.db.Create(&models.SellerAddress{
		ID:        "addr-" + id,
		SellerID:  id,
		Type:      models.SellerAddressPickup,
		Latitude:  lat,
		Longitude: lng,
	}).Error)
}

func (f *fixture) product(t *testing.T, id, sellerID, price string, stock int, active bool) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Product{
		ID:            id,
		SellerID:      sellerID,
		Name:          "Product " + id,
		Price:         money(price),
		StockQuantity: stock,
		IsActive:      active,
	}).Error)
}

func (f *fixture) voucher(t *testing.T, v models.Voucher) {
	t.Helper()
	if v.ValidFrom.IsZero() {
		v.ValidFrom = time.Now().Add(-24 * time.Hour)
	}
	if v.ValidUntil.IsZero() {
		v.ValidUntil = time.Now().Add(24 * time.Hour)
	}
	v.IsActive = true
	require.NoError(t, f.db.Create(&v).Error)
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", productID).Error)
	return p.StockQuantity
}

func (f *fixture) usedCount(t *testing.T, voucherID string) int {
	t.Helper()
	var v models.Voucher
	require.NoError(t, f.db.First(&v, "id = ?", voucherID).Error)
	return v.UsedCount
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
