package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bubblehouse/connector/internal/domain/sales"
	"github.com/bubblehouse/connector/internal/infrastructure/persistence/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.OrderModel{}, &models.OrderItemModel{}, &models.OrderAddressModel{})
	require.NoError(t, err)

	return db
}

func seedOrder(t *testing.T, db *gorm.DB) {
	customerID := int64(77)
	productID := int64(501)
	region := "Tokyo"

	order := &models.OrderModel{
		ID:                1001,
		IncrementID:       "000001001",
		StoreID:           2,
		Status:            "complete",
		CurrencyCode:      "JPY",
		CustomerID:        &customerID,
		CustomerEmail:     "hanako@example.jp",
		CustomerFirstname: "花子",
		CustomerLastname:  "山田",
		Subtotal:          decimal.RequireFromString("40"),
		ShippingAmount:    decimal.RequireFromString("2.5"),
		GrandTotal:        decimal.RequireFromString("42.50"),
		ShippingAddress: &models.OrderAddressModel{
			Firstname:   "花子",
			Lastname:    "山田",
			Street:      "1-1 Chiyoda",
			City:        "Chiyoda-ku",
			Region:      &region,
			Postcode:    "100-0001",
			CountryCode: "JP",
		},
		Items: []models.OrderItemModel{
			{ID: 2, SKU: "SENCHA-2", Name: "煎茶", Qty: decimal.NewFromInt(1), Price: decimal.RequireFromString("10"), RowTotal: decimal.RequireFromString("10")},
			{ID: 1, SKU: "MATCHA-1", Name: "抹茶", ProductID: &productID, Qty: decimal.NewFromInt(2), Price: decimal.RequireFromString("15"), RowTotal: decimal.RequireFromString("30")},
		},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, db.Create(order).Error)

	deleted := &models.OrderModel{
		ID:          1002,
		IncrementID: "000001002",
		StoreID:     1,
		IsDeleted:   true,
	}
	require.NoError(t, db.Create(deleted).Error)
}

func TestGormOrderRepository_Get(t *testing.T) {
	db := setupOrderTestDB(t)
	seedOrder(t, db)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	t.Run("loads order with lines and address", func(t *testing.T) {
		order, err := repo.Get(ctx, 1001)
		require.NoError(t, err)

		assert.Equal(t, int64(1001), order.ID)
		assert.Equal(t, "000001001", order.IncrementID)
		assert.Equal(t, int64(2), order.StoreID)
		assert.False(t, order.IsDeleted)
		assert.Equal(t, "hanako@example.jp", order.CustomerEmail)
		assert.Equal(t, int64(77), *order.CustomerID)
		assert.Equal(t, "42.50", order.GrandTotal.StringFixed(2))
		assert.Nil(t, order.CouponCode)

		require.NotNil(t, order.ShippingAddress)
		assert.Equal(t, "JP", order.ShippingAddress.CountryCode)
		assert.Equal(t, "Tokyo", *order.ShippingAddress.Region)
		assert.Nil(t, order.ShippingAddress.Telephone)

		require.Len(t, order.Items, 2)
		assert.Equal(t, "MATCHA-1", order.Items[0].SKU)
		assert.Equal(t, int64(501), *order.Items[0].ProductID)
		assert.True(t, order.Items[0].Qty.Equal(decimal.NewFromInt(2)))
		assert.Equal(t, "SENCHA-2", order.Items[1].SKU)
		assert.Nil(t, order.Items[1].ProductID)
	})

	t.Run("returns soft-deleted orders", func(t *testing.T) {
		order, err := repo.Get(ctx, 1002)
		require.NoError(t, err)

		assert.True(t, order.IsDeleted)
		assert.Nil(t, order.ShippingAddress)
		assert.Empty(t, order.Items)
	})

	t.Run("missing order", func(t *testing.T) {
		order, err := repo.Get(ctx, 404)

		assert.Nil(t, order)
		assert.ErrorIs(t, err, sales.ErrOrderNotFound)
	})
}
