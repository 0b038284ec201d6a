package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/infrastructure/persistence/models"
)

// GormExportRecordRepository implements export.ExportRecordRepository using GORM
type GormExportRecordRepository struct {
	db *gorm.DB
}

// NewGormExportRecordRepository creates a new GORM-based export log store
func NewGormExportRecordRepository(db *gorm.DB) *GormExportRecordRepository {
	return &GormExportRecordRepository{db: db}
}

// Create allocates a new PENDING record without touching the database
func (r *GormExportRecordRepository) Create() *export.ExportRecord {
	return export.NewExportRecord()
}

// Save upserts the full state of the record
func (r *GormExportRecordRepository) Save(ctx context.Context, record *export.ExportRecord) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", export.ErrPersistence)
	}

	model := models.ExportRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("%w: save record %s: %v", export.ErrPersistence, record.ID, err)
	}

	record.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID returns the record with the given ID
func (r *GormExportRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*export.ExportRecord, error) {
	var model models.ExportRecordModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", export.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("%w: find record %s: %v", export.ErrPersistence, id, err)
	}
	return model.ToDomain(), nil
}

// FindByStatus returns up to limit records in the given status, oldest first
func (r *GormExportRecordRepository) FindByStatus(ctx context.Context, status export.Status, limit int) ([]*export.ExportRecord, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", int16(status)).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.ExportRecordModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: find records by status %s: %v", export.ErrPersistence, status, err)
	}

	records := make([]*export.ExportRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// CountByStatus returns the number of records in each status
func (r *GormExportRecordRepository) CountByStatus(ctx context.Context) (map[export.Status]int64, error) {
	var rows []struct {
		Status int16
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ExportRecordModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: count records: %v", export.ErrPersistence, err)
	}

	counts := map[export.Status]int64{
		export.StatusPending: 0,
		export.StatusSuccess: 0,
	}
	for _, row := range rows {
		counts[export.Status(row.Status)] = row.Count
	}
	return counts, nil
}

var _ export.ExportRecordRepository = (*GormExportRecordRepository)(nil)
