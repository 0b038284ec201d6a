package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bubblehouse/connector/internal/domain/sales"
)

// moneyPlaces is the number of decimal places money values are rendered with
const moneyPlaces = 2

// OrderExtractor maps storefront orders to OrderPayload. It holds no state.
type OrderExtractor struct{}

// NewOrderExtractor creates a new OrderExtractor
func NewOrderExtractor() *OrderExtractor {
	return &OrderExtractor{}
}

// Extract builds the external representation of an order.
// When isDeleted is true a tombstone is returned instead of the full order.
func (e *OrderExtractor) Extract(order *sales.Order, isDeleted bool) (*OrderPayload, error) {
	if err := validateIdentity(order); err != nil {
		return nil, err
	}

	if isDeleted {
		return &OrderPayload{
			ID:          order.ID,
			IncrementID: order.IncrementID,
			StoreID:     order.StoreID,
			Deleted:     true,
		}, nil
	}

	if strings.TrimSpace(order.CustomerEmail) == "" {
		return nil, fmt.Errorf("%w: order %d has no customer email", ErrInvalidOrderData, order.ID)
	}

	items := make([]ItemPayload, 0, len(order.Items))
	for i, item := range order.Items {
		if strings.TrimSpace(item.SKU) == "" {
			return nil, fmt.Errorf("%w: order %d line %d has no SKU", ErrInvalidOrderData, order.ID, i+1)
		}
		items = append(items, ItemPayload{
			SKU:       item.SKU,
			Name:      item.Name,
			ProductID: item.ProductID,
			Qty:       item.Qty.String(),
			Price:     money(item.Price),
			RowTotal:  money(item.RowTotal),
		})
	}

	payload := &OrderPayload{
		ID:          order.ID,
		IncrementID: order.IncrementID,
		StoreID:     order.StoreID,
		Status:      order.Status,
		Currency:    order.CurrencyCode,
		Customer: &CustomerPayload{
			ID:        order.CustomerID,
			Email:     order.CustomerEmail,
			FirstName: order.CustomerFirstName,
			LastName:  order.CustomerLastName,
		},
		Subtotal:   money(order.Subtotal),
		Shipping:   money(order.ShippingAmount),
		Discount:   money(order.DiscountAmount),
		Tax:        money(order.TaxAmount),
		Total:      money(order.GrandTotal),
		CouponCode: order.CouponCode,
		Items:      items,
		CreatedAt:  timestamp(order.CreatedAt),
		UpdatedAt:  timestamp(order.UpdatedAt),
	}

	if addr := order.ShippingAddress; addr != nil {
		payload.ShippingAddress = &AddressPayload{
			FirstName: addr.FirstName,
			LastName:  addr.LastName,
			Street:    addr.Street,
			City:      addr.City,
			Region:    addr.Region,
			Postcode:  addr.Postcode,
			Country:   addr.CountryCode,
			Telephone: addr.Telephone,
		}
	}

	return payload, nil
}

// validateIdentity checks the fields both payload forms need
func validateIdentity(order *sales.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order is nil", ErrInvalidOrderData)
	}
	if order.ID <= 0 {
		return fmt.Errorf("%w: invalid order id %d", ErrInvalidOrderData, order.ID)
	}
	if strings.TrimSpace(order.IncrementID) == "" {
		return fmt.Errorf("%w: order %d has no increment id", ErrInvalidOrderData, order.ID)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

var _ Extractor = (*OrderExtractor)(nil)
