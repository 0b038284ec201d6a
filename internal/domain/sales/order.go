package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bubblehouse/connector/internal/domain/shared"
)

// ErrOrderNotFound is returned by an OrderRepository when no order has the requested ID
var ErrOrderNotFound = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")

// Order is a storefront order as seen by the connector.
// It is owned and mutated by the storefront; the connector only reads it.
type Order struct {
	// ID is the entity identifier
	ID int64
	// IncrementID is the customer-facing order number (e.g. "000001001")
	IncrementID string
	// StoreID is the store (tenant) the order was placed in
	StoreID int64
	// IsDeleted is the storefront soft-delete flag
	IsDeleted bool

	Status       string
	CurrencyCode string

	CustomerID        *int64 // nil for guest checkouts
	CustomerEmail     string
	CustomerFirstName string
	CustomerLastName  string

	Subtotal       decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
	CouponCode     *string

	ShippingAddress *Address
	Items           []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a single line of an order
type OrderItem struct {
	ID        int64
	OrderID   int64
	SKU       string
	Name      string
	ProductID *int64
	Qty       decimal.Decimal
	Price     decimal.Decimal
	RowTotal  decimal.Decimal
}

// Address is a postal address attached to an order
type Address struct {
	FirstName   string
	LastName    string
	Street      string
	City        string
	Region      *string
	Postcode    string
	CountryCode string
	Telephone   *string
}

// OrderRepository is the read side of the storefront order store
type OrderRepository interface {
	// Get returns the order with the given ID, or ErrOrderNotFound
	Get(ctx context.Context, id int64) (*Order, error)
}
