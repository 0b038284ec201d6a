package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type traceTestRecord struct {
	ID     uint   `gorm:"primaryKey"`
	Status int16  `gorm:"not null"`
	Body   string `gorm:"type:text"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&traceTestRecord{}))
	return db
}

func setupSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestNewDBTracingPlugin_AppliesDefaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", p.config.DBSystem)
}

func TestDBTracingPlugin_Register_Disabled(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupSpanRecorder(t)

	cfg := DefaultDBTracingConfig()
	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	require.NoError(t, db.WithContext(context.Background()).Create(&traceTestRecord{Body: "{}"}).Error)
	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_Register_Enabled(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupSpanRecorder(t)
	core, logs := observer.New(zap.InfoLevel)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.New(core)).Register(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&traceTestRecord{Body: `{"id":1001}`}).Error)

	var found traceTestRecord
	require.NoError(t, db.WithContext(ctx).First(&found).Error)

	assert.GreaterOrEqual(t, len(sr.Ended()), 2)
	assert.Equal(t, 1, logs.FilterMessage("Database tracing enabled").Len())
}

func TestDBTracingPlugin_SlowQueryAttributes(t *testing.T) {
	db := setupTestDB(t)
	tp, _ := setupSpanRecorder(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	stmt := db.Session(&gorm.Session{}).Table("trace_test_records")
	stmt.Statement.Context = ctx

	p.before(stmt)
	time.Sleep(time.Millisecond)
	p.after(stmt)
	span.End()

	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ro.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, "trace_test_records", attrs["db.sql.table"].AsString())
	require.Len(t, ro.Events(), 1)
	assert.Equal(t, "slow_query_warning", ro.Events()[0].Name)
}

func TestDBTracingPlugin_AfterWithoutSpan(t *testing.T) {
	db := setupTestDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	stmt := db.Session(&gorm.Session{})
	stmt.Statement.Context = context.Background()

	assert.NotPanics(t, func() { p.after(stmt) })
}
