package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/infrastructure/persistence/models"
)

func setupExportRecordTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ExportRecordModel{})
	require.NoError(t, err)

	return db
}

func newPendingRecord(repo *GormExportRecordRepository, body string, createdAt time.Time) *export.ExportRecord {
	record := repo.Create()
	record.SetMessage(export.MessageTypeOrder, []byte(body))
	record.CreatedAt = createdAt
	record.UpdatedAt = createdAt
	return record
}

func TestGormExportRecordRepository_Create(t *testing.T) {
	db := setupExportRecordTestDB(t)
	repo := NewGormExportRecordRepository(db)

	record := repo.Create()

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, export.StatusPending, record.Status)

	var count int64
	require.NoError(t, db.Model(&models.ExportRecordModel{}).Count(&count).Error)
	assert.Zero(t, count, "Create must not write")
}

func TestGormExportRecordRepository_Save(t *testing.T) {
	db := setupExportRecordTestDB(t)
	repo := NewGormExportRecordRepository(db)
	ctx := context.Background()

	t.Run("inserts a new pending record", func(t *testing.T) {
		record := newPendingRecord(repo, `{"id":1001}`, time.Now())

		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
		assert.Equal(t, export.MessageTypeOrder, found.MessageType)
		assert.Equal(t, `{"id":1001}`, found.MessageBody)
		assert.Equal(t, export.StatusPending, found.Status)
	})

	t.Run("updates the same row on success", func(t *testing.T) {
		record := newPendingRecord(repo, `{"id":1002}`, time.Now())
		require.NoError(t, repo.Save(ctx, record))

		record.MarkSuccess()
		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, export.StatusSuccess, found.Status)
		assert.Equal(t, `{"id":1002}`, found.MessageBody)

		var count int64
		require.NoError(t, db.Model(&models.ExportRecordModel{}).Where("id = ?", record.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("repeated save of the same state is harmless", func(t *testing.T) {
		record := newPendingRecord(repo, `{"id":1003}`, time.Now())

		require.NoError(t, repo.Save(ctx, record))
		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, export.StatusPending, found.Status)
	})

	t.Run("keeps non-ASCII bodies intact", func(t *testing.T) {
		record := newPendingRecord(repo, `{"name":"抹茶 <&> Zoë"}`, time.Now())
		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"抹茶 <&> Zoë"}`, found.MessageBody)
	})

	t.Run("nil record", func(t *testing.T) {
		err := repo.Save(ctx, nil)
		assert.ErrorIs(t, err, export.ErrPersistence)
	})
}

func TestGormExportRecordRepository_Save_StorageFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	repo := NewGormExportRecordRepository(gormDB)
	record := repo.Create()
	record.SetMessage(export.MessageTypeOrder, []byte(`{"id":1001}`))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bubblehouse_queue_log"`).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	err = repo.Save(context.Background(), record)

	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrPersistence)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormExportRecordRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormExportRecordRepository(setupExportRecordTestDB(t))

	found, err := repo.FindByID(context.Background(), uuid.New())

	assert.Nil(t, found)
	assert.ErrorIs(t, err, export.ErrRecordNotFound)
}

func TestGormExportRecordRepository_FindByStatus(t *testing.T) {
	db := setupExportRecordTestDB(t)
	repo := NewGormExportRecordRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	var pending []*export.ExportRecord
	for i := 0; i < 3; i++ {
		record := newPendingRecord(repo, `{}`, base.Add(time.Duration(2-i)*time.Minute))
		require.NoError(t, repo.Save(ctx, record))
		pending = append(pending, record)
	}
	done := newPendingRecord(repo, `{}`, base)
	done.MarkSuccess()
	require.NoError(t, repo.Save(ctx, done))

	t.Run("returns pending records oldest first", func(t *testing.T) {
		records, err := repo.FindByStatus(ctx, export.StatusPending, 0)
		require.NoError(t, err)

		require.Len(t, records, 3)
		assert.Equal(t, pending[2].ID, records[0].ID)
		assert.Equal(t, pending[1].ID, records[1].ID)
		assert.Equal(t, pending[0].ID, records[2].ID)
	})

	t.Run("respects limit", func(t *testing.T) {
		records, err := repo.FindByStatus(ctx, export.StatusPending, 2)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		records, err := repo.FindByStatus(ctx, export.StatusSuccess, 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, done.ID, records[0].ID)
	})
}

func TestGormExportRecordRepository_CountByStatus(t *testing.T) {
	db := setupExportRecordTestDB(t)
	repo := NewGormExportRecordRepository(db)
	ctx := context.Background()

	t.Run("empty log reports zero for every status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[export.Status]int64{export.StatusPending: 0, export.StatusSuccess: 0}, counts)
	})

	t.Run("counts per status", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			require.NoError(t, repo.Save(ctx, newPendingRecord(repo, `{}`, time.Now())))
		}
		done := newPendingRecord(repo, `{}`, time.Now())
		done.MarkSuccess()
		require.NoError(t, repo.Save(ctx, done))

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[export.StatusPending])
		assert.Equal(t, int64(1), counts[export.StatusSuccess])
	})
}
