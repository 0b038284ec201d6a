package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bubblehouse/connector/internal/domain/sales"
)

// OrderModel is the storefront order row. The connector only reads it.
type OrderModel struct {
	ID                int64              `gorm:"primaryKey"`
	IncrementID       string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	StoreID           int64              `gorm:"not null;index"`
	IsDeleted         bool               `gorm:"not null;default:false"`
	Status            string             `gorm:"type:varchar(32)"`
	CurrencyCode      string             `gorm:"type:varchar(3)"`
	CustomerID        *int64             `gorm:"index"`
	CustomerEmail     string             `gorm:"type:varchar(255)"`
	CustomerFirstname string             `gorm:"type:varchar(255)"`
	CustomerLastname  string             `gorm:"type:varchar(255)"`
	Subtotal          decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0"`
	ShippingAmount    decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0"`
	DiscountAmount    decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0"`
	TaxAmount         decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0"`
	GrandTotal        decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0"`
	CouponCode        *string            `gorm:"type:varchar(255)"`
	ShippingAddress   *OrderAddressModel `gorm:"foreignKey:OrderID"`
	Items             []OrderItemModel   `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "sales_order"
}

// OrderItemModel is one order line
type OrderItemModel struct {
	ID        int64           `gorm:"primaryKey"`
	OrderID   int64           `gorm:"not null;index"`
	SKU       string          `gorm:"column:sku;type:varchar(64)"`
	Name      string          `gorm:"type:varchar(255)"`
	ProductID *int64          `gorm:"index"`
	Qty       decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	RowTotal  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "sales_order_item"
}

// OrderAddressModel is the shipping address of an order
type OrderAddressModel struct {
	ID          int64   `gorm:"primaryKey"`
	OrderID     int64   `gorm:"not null;uniqueIndex"`
	Firstname   string  `gorm:"type:varchar(255)"`
	Lastname    string  `gorm:"type:varchar(255)"`
	Street      string  `gorm:"type:varchar(255)"`
	City        string  `gorm:"type:varchar(255)"`
	Region      *string `gorm:"type:varchar(255)"`
	Postcode    string  `gorm:"type:varchar(32)"`
	CountryCode string  `gorm:"type:varchar(2)"`
	Telephone   *string `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (OrderAddressModel) TableName() string {
	return "sales_order_address"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *sales.Order {
	order := &sales.Order{
		ID:                m.ID,
		IncrementID:       m.IncrementID,
		StoreID:           m.StoreID,
		IsDeleted:         m.IsDeleted,
		Status:            m.Status,
		CurrencyCode:      m.CurrencyCode,
		CustomerID:        m.CustomerID,
		CustomerEmail:     m.CustomerEmail,
		CustomerFirstName: m.CustomerFirstname,
		CustomerLastName:  m.CustomerLastname,
		Subtotal:          m.Subtotal,
		ShippingAmount:    m.ShippingAmount,
		DiscountAmount:    m.DiscountAmount,
		TaxAmount:         m.TaxAmount,
		GrandTotal:        m.GrandTotal,
		CouponCode:        m.CouponCode,
		Items:             make([]sales.OrderItem, 0, len(m.Items)),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	for _, item := range m.Items {
		order.Items = append(order.Items, sales.OrderItem{
			ID:        item.ID,
			OrderID:   item.OrderID,
			SKU:       item.SKU,
			Name:      item.Name,
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
			RowTotal:  item.RowTotal,
		})
	}

	if a := m.ShippingAddress; a != nil {
		order.ShippingAddress = &sales.Address{
			FirstName:   a.Firstname,
			LastName:    a.Lastname,
			Street:      a.Street,
			City:        a.City,
			Region:      a.Region,
			Postcode:    a.Postcode,
			CountryCode: a.CountryCode,
			Telephone:   a.Telephone,
		}
	}

	return order
}
