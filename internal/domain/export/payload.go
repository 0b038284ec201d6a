package export

import (
	"bytes"
	"encoding/json"
)

// OrderPayload is the external representation of an order.
// Money values are fixed two-decimal strings so they survive JSON unchanged.
// A deleted order is sent as a tombstone carrying only the identifiers.
type OrderPayload struct {
	ID              int64            `json:"id"`
	IncrementID     string           `json:"increment_id"`
	StoreID         int64            `json:"store_id"`
	Deleted         bool             `json:"deleted"`
	Status          string           `json:"status,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	Customer        *CustomerPayload `json:"customer,omitempty"`
	Subtotal        string           `json:"subtotal,omitempty"`
	Shipping        string           `json:"shipping,omitempty"`
	Discount        string           `json:"discount,omitempty"`
	Tax             string           `json:"tax,omitempty"`
	Total           string           `json:"total,omitempty"`
	CouponCode      *string          `json:"coupon_code,omitempty"`
	ShippingAddress *AddressPayload  `json:"shipping_address,omitempty"`
	Items           []ItemPayload    `json:"items"`
	CreatedAt       string           `json:"created_at,omitempty"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}

// tombstonePayload is the wire form of a deleted order
type tombstonePayload struct {
	ID          int64  `json:"id"`
	IncrementID string `json:"increment_id"`
	StoreID     int64  `json:"store_id"`
	Deleted     bool   `json:"deleted"`
}

// MarshalJSON writes only the identifiers for a deleted order.
// HTML characters are not escaped.
func (p OrderPayload) MarshalJSON() ([]byte, error) {
	if p.Deleted {
		return marshalLiteral(tombstonePayload{
			ID:          p.ID,
			IncrementID: p.IncrementID,
			StoreID:     p.StoreID,
			Deleted:     true,
		})
	}
	type fullPayload OrderPayload
	return marshalLiteral(fullPayload(p))
}

func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CustomerPayload identifies the buyer. Guests have no ID.
type CustomerPayload struct {
	ID        *int64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AddressPayload is the flattened shipping address
type AddressPayload struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Street    string  `json:"street"`
	City      string  `json:"city"`
	Region    *string `json:"region"`
	Postcode  string  `json:"postcode"`
	Country   string  `json:"country"`
	Telephone *string `json:"telephone"`
}

// ItemPayload is one order line
type ItemPayload struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	ProductID *int64 `json:"product_id"`
	Qty       string `json:"qty"`
	Price     string `json:"price"`
	RowTotal  string `json:"row_total"`
}
