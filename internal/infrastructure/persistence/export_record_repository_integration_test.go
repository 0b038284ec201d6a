//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/infrastructure/config"
	"github.com/bubblehouse/connector/internal/infrastructure/migration"
	"github.com/bubblehouse/connector/migrations"
)

// newPostgresDatabase starts a throwaway PostgreSQL and applies the embedded migrations
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("connector_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := NewDatabase(&config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "postgres",
		DBName:       "connector_test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	migrator, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	return db
}

func TestGormExportRecordRepository_Postgres(t *testing.T) {
	db := newPostgresDatabase(t)
	repo := NewGormExportRecordRepository(db.DB)
	ctx := context.Background()

	record := repo.Create()
	record.SetMessage(export.MessageTypeOrder, []byte(`{"id":1001,"increment_id":"000001001","total":"42.50"}`))
	require.NoError(t, repo.Save(ctx, record))

	pending, err := repo.FindByStatus(ctx, export.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, record.ID, pending[0].ID)

	record.MarkSuccess()
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, export.StatusSuccess, found.Status)
	assert.Equal(t, record.MessageBody, found.MessageBody)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[export.StatusPending])
	assert.Equal(t, int64(1), counts[export.StatusSuccess])
}

func TestGormExportRecordRepository_Postgres_RejectsUnknownStatus(t *testing.T) {
	db := newPostgresDatabase(t)
	repo := NewGormExportRecordRepository(db.DB)

	record := repo.Create()
	record.SetMessage(export.MessageTypeOrder, []byte(`{}`))
	record.Status = export.Status(2)

	err := repo.Save(context.Background(), record)
	assert.ErrorIs(t, err, export.ErrPersistence)
}
