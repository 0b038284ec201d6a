package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblehouse/connector/internal/domain/sales"
)

func newTestOrder() *sales.Order {
	customerID := int64(77)
	productID := int64(501)
	coupon := "SUMMER10"
	region := "Île-de-France"

	return &sales.Order{
		ID:                1001,
		IncrementID:       "000001001",
		StoreID:           1,
		Status:            "processing",
		CurrencyCode:      "EUR",
		CustomerID:        &customerID,
		CustomerEmail:     "zoe@example.com",
		CustomerFirstName: "Zoë",
		CustomerLastName:  "Lefèvre",
		Subtotal:          decimal.RequireFromString("40"),
		ShippingAmount:    decimal.RequireFromString("5.5"),
		DiscountAmount:    decimal.RequireFromString("-3"),
		TaxAmount:         decimal.Zero,
		GrandTotal:        decimal.RequireFromString("42.50"),
		CouponCode:        &coupon,
		ShippingAddress: &sales.Address{
			FirstName:   "Zoë",
			LastName:    "Lefèvre",
			Street:      "12 rue de la Paix",
			City:        "Paris",
			Region:      &region,
			Postcode:    "75002",
			CountryCode: "FR",
		},
		Items: []sales.OrderItem{
			{SKU: "TEA-001", Name: "Thé vert", ProductID: &productID, Qty: decimal.NewFromInt(2), Price: decimal.RequireFromString("15"), RowTotal: decimal.RequireFromString("30")},
			{SKU: "MUG-002", Name: "Mug", Qty: decimal.NewFromInt(1), Price: decimal.RequireFromString("10"), RowTotal: decimal.RequireFromString("10")},
		},
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 5, 1, 11, 30, 0, 0, time.UTC),
	}
}

func TestOrderExtractor_Extract(t *testing.T) {
	extractor := NewOrderExtractor()

	t.Run("full order", func(t *testing.T) {
		order := newTestOrder()

		payload, err := extractor.Extract(order, false)
		require.NoError(t, err)

		assert.Equal(t, int64(1001), payload.ID)
		assert.Equal(t, "000001001", payload.IncrementID)
		assert.Equal(t, int64(1), payload.StoreID)
		assert.False(t, payload.Deleted)
		assert.Equal(t, "42.50", payload.Total)
		assert.Equal(t, "40.00", payload.Subtotal)
		assert.Equal(t, "5.50", payload.Shipping)
		assert.Equal(t, "-3.00", payload.Discount)
		assert.Equal(t, "0.00", payload.Tax)
		assert.Equal(t, "EUR", payload.Currency)
		require.NotNil(t, payload.Customer)
		assert.Equal(t, "zoe@example.com", payload.Customer.Email)
		assert.Equal(t, int64(77), *payload.Customer.ID)
		require.NotNil(t, payload.ShippingAddress)
		assert.Equal(t, "FR", payload.ShippingAddress.Country)
		assert.Equal(t, "2024-05-01T10:00:00Z", payload.CreatedAt)

		require.Len(t, payload.Items, 2)
		assert.Equal(t, "TEA-001", payload.Items[0].SKU)
		assert.Equal(t, "2", payload.Items[0].Qty)
		assert.Equal(t, "15.00", payload.Items[0].Price)
		assert.Equal(t, "30.00", payload.Items[0].RowTotal)
		assert.Nil(t, payload.Items[1].ProductID)
	})

	t.Run("deleted order produces tombstone", func(t *testing.T) {
		order := newTestOrder()
		order.IsDeleted = true

		payload, err := extractor.Extract(order, true)
		require.NoError(t, err)

		assert.True(t, payload.Deleted)
		assert.Equal(t, int64(1001), payload.ID)
		assert.Equal(t, "000001001", payload.IncrementID)
		assert.Nil(t, payload.Customer)
		assert.Empty(t, payload.Items)
		assert.Empty(t, payload.Total)
	})

	t.Run("tombstone does not require customer data", func(t *testing.T) {
		order := newTestOrder()
		order.CustomerEmail = ""
		order.Items[0].SKU = ""

		_, err := extractor.Extract(order, true)
		assert.NoError(t, err)
	})

	t.Run("guest order without address", func(t *testing.T) {
		order := newTestOrder()
		order.CustomerID = nil
		order.ShippingAddress = nil
		order.CouponCode = nil

		payload, err := extractor.Extract(order, false)
		require.NoError(t, err)

		assert.Nil(t, payload.Customer.ID)
		assert.Nil(t, payload.ShippingAddress)
		assert.Nil(t, payload.CouponCode)
	})

	t.Run("order without items", func(t *testing.T) {
		order := newTestOrder()
		order.Items = nil

		payload, err := extractor.Extract(order, false)
		require.NoError(t, err)
		assert.NotNil(t, payload.Items)
		assert.Empty(t, payload.Items)
	})
}

func TestOrderExtractor_Extract_InvalidData(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(o *sales.Order) *sales.Order
		isDeleted bool
	}{
		{
			name:   "nil order",
			mutate: func(o *sales.Order) *sales.Order { return nil },
		},
		{
			name:   "zero id",
			mutate: func(o *sales.Order) *sales.Order { o.ID = 0; return o },
		},
		{
			name:      "missing increment id on tombstone",
			mutate:    func(o *sales.Order) *sales.Order { o.IncrementID = " "; return o },
			isDeleted: true,
		},
		{
			name:   "missing customer email",
			mutate: func(o *sales.Order) *sales.Order { o.CustomerEmail = ""; return o },
		},
		{
			name:   "line without sku",
			mutate: func(o *sales.Order) *sales.Order { o.Items[1].SKU = ""; return o },
		},
	}

	extractor := NewOrderExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.mutate(newTestOrder())

			payload, err := extractor.Extract(order, tt.isDeleted)

			assert.Nil(t, payload)
			assert.ErrorIs(t, err, ErrInvalidOrderData)
		})
	}
}

func TestOrderExtractor_Extract_DoesNotMutateOrder(t *testing.T) {
	order := newTestOrder()
	before := *order

	_, err := NewOrderExtractor().Extract(order, false)
	require.NoError(t, err)

	assert.Equal(t, before, *order)
}
