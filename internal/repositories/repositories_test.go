package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace/internal/database"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestProductRepository_StockGuards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repositories.NewGORMProductRepository(db)

	require.NoError(t, db.Create(&models.Product{ID: "p1", SellerID: "s1", Name: "Mango", Price: decimal.NewFromInt(20), StockQuantity: 3, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Product{ID: "p2", SellerID: "s1", Name: "Old stock", Price: decimal.NewFromInt(5), StockQuantity: 3, IsActive: false}).Error)

	p, err := repo.GetActiveForUpdate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.StockQuantity)

	_, err = repo.GetActiveForUpdate(ctx, "p2")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.GetActiveForUpdate(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.DecrementStock(ctx, "p1", 2))
	err = repo.DecrementStock(ctx, "p1", 2)
	assert.ErrorIs(t, err, repositories.ErrStockConflict)

	p, err = repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	require.NoError(t, repo.RestoreStock(ctx, "p1", 4))
	p, err = repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestVoucherRepository_UsageGuards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repositories.NewGORMVoucherRepository(db)

	limit := 1
	require.NoError(t, db.Create(&models.Voucher{
		ID: "v1", Code: "ONCE", DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(10),
		UsageLimit: &limit, IsActive: true, ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}).Error)

	v, err := repo.GetActiveByCode(ctx, "ONCE", true)
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)

	_, err = repo.GetActiveByCode(ctx, "NOPE", false)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.IncrementUsage(ctx, "v1"))
	assert.ErrorIs(t, repo.IncrementUsage(ctx, "v1"), repositories.ErrUsageLimitReached)

	require.NoError(t, repo.ReleaseUsage(ctx, "v1"))
	require.NoError(t, repo.ReleaseUsage(ctx, "v1"))

	v, err = repo.GetActiveByCode(ctx, "ONCE", false)
	require.NoError(t, err)
	assert.Equal(t, 0, v.UsedCount)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := repositories.NewGORMStore(db)

	require.NoError(t, db.Create(&models.Product{ID: "p1", SellerID: "s1", Name: "Rice", Price: decimal.NewFromInt(50), StockQuantity: 10, IsActive: true}).Error)

	boom := fmt.Errorf("boom")
	err := store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Products().DecrementStock(ctx, "p1", 4); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := store.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity)
}

func TestOrderRepository_ListAndPreorders(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repositories.NewGORMOrderRepository(db)

	base := time.Now().Add(-time.Hour)
	for i, status := range []models.OrderStatus{models.OrderStatusPending, models.OrderStatusDelivered, models.OrderStatusPending} {
		o := &models.Order{
			ID:            fmt.Sprintf("o%d", i),
			OrderNumber:   fmt.Sprintf("ORD-%d", i),
			UserID:        "u1",
			Status:        status,
			PaymentMethod: models.PaymentMethodCashOnDelivery,
			PaymentStatus: models.PaymentStatusPending,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			Items: []models.OrderItem{{
				ID: fmt.Sprintf("i%d", i), ProductID: "p1", SellerID: "s1", Quantity: 1,
				UnitPrice: decimal.NewFromInt(10), TotalPrice: decimal.NewFromInt(10), ItemStatus: models.ItemStatusPending,
			}},
		}
		require.NoError(t, repo.Create(ctx, o))
	}
	require.NoError(t, db.Create(&models.Order{ID: "other", OrderNumber: "ORD-X", UserID: "u2", Status: models.OrderStatusPending}).Error)

	orders, total, err := repo.ListByUser(ctx, "u1", repositories.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Len(t, orders[0].Items, 1)

	orders, total, err = repo.ListByUser(ctx, "u1", repositories.OrderFilter{Status: models.OrderStatusPending, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	_, err = repo.GetForUser(ctx, "u2", "o0", false)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, db.Create(&models.PreorderItem{ID: "pre1", OrderItemID: "i1"}).Error)
	pre, err := repo.PreorderItemIDs(ctx, []string{"i0", "i1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"i1": true}, pre)
}
