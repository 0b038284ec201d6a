package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bubblehouse/connector/internal/domain/sales"
	"github.com/bubblehouse/connector/internal/infrastructure/persistence/models"
)

// GormOrderRepository reads storefront orders
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Get loads an order with its lines and shipping address.
// Soft-deleted orders are returned; the caller decides how to export them.
func (r *GormOrderRepository) Get(ctx context.Context, id int64) (*sales.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("ShippingAddress").
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return model.ToDomain(), nil
}

var _ sales.OrderRepository = (*GormOrderRepository)(nil)
