package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DefaultDBMetricsConfig returns default configuration for database metrics.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics records connection pool state and query latency of the storefront database.
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBMetrics creates the database instruments on meter.
// sqlDB may be nil when pool stats are not wanted.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{
		config: cfg,
		logger: logger,
		sqlDB:  sqlDB,
		stopCh: make(chan struct{}),
	}

	var err error
	if m.poolConnections, err = NewGauge(meter, "db_pool_connections", "Number of connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolConnectionsMax, err = NewGauge(meter, "db_pool_connections_max", "Maximum number of open connections", "{connection}"); err != nil {
		return nil, err
	}
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Total number of database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Total number of queries above the slow threshold", "{query}"); err != nil {
		return nil, err
	}

	return m, nil
}

// StartPoolStatsCollection samples sql.DBStats every PoolStatsInterval until Stop.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m.sqlDB == nil {
		m.logger.Warn("Cannot start pool stats collection: sql.DB not set")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.CollectPoolStats(ctx)

		for {
			select {
			case <-ticker.C:
				m.CollectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CollectPoolStats records the current pool statistics once.
func (m *DBMetrics) CollectPoolStats(ctx context.Context) {
	if m.sqlDB == nil {
		return
	}

	stats := m.sqlDB.Stats()
	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop stops the pool stats collection. Safe to call multiple times.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// RecordQuery records one executed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// Name implements gorm.Plugin.
func (m *DBMetrics) Name() string {
	return "bhc_db_metrics"
}

// Initialize implements gorm.Plugin by timing every statement kind.
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("bhc_metrics:before_create", m.before),
		cb.Query().Before("gorm:query").Register("bhc_metrics:before_query", m.before),
		cb.Update().Before("gorm:update").Register("bhc_metrics:before_update", m.before),
		cb.Delete().Before("gorm:delete").Register("bhc_metrics:before_delete", m.before),
		cb.Row().Before("gorm:row").Register("bhc_metrics:before_row", m.before),
		cb.Raw().Before("gorm:raw").Register("bhc_metrics:before_raw", m.before),

		cb.Create().After("gorm:create").Register("bhc_metrics:after_create", m.afterOp("INSERT")),
		cb.Query().After("gorm:query").Register("bhc_metrics:after_query", m.afterOp("SELECT")),
		cb.Update().After("gorm:update").Register("bhc_metrics:after_update", m.afterOp("UPDATE")),
		cb.Delete().After("gorm:delete").Register("bhc_metrics:after_delete", m.afterOp("DELETE")),
		cb.Row().After("gorm:row").Register("bhc_metrics:after_row", m.afterOp("")),
		cb.Raw().After("gorm:raw").Register("bhc_metrics:after_raw", m.afterOp("")),
	)
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "bhc_db_metrics_start_time"

func (m *DBMetrics) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbMetricsStartTimeKey, time.Now())
}

// afterOp records the statement; an empty operation is detected from the SQL text.
func (m *DBMetrics) afterOp(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		var duration time.Duration
		if startTime, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
			duration = time.Since(startTime)
		}

		op := operation
		if op == "" {
			op = detectOperationType(db.Statement.SQL.String())
		}
		m.RecordQuery(ctx, op, db.Statement.Table, duration)
	}
}

func detectOperationType(query string) string {
	query = strings.TrimSpace(strings.ToUpper(query))

	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, op) {
			return op
		}
	}
	return "OTHER"
}

// RegisterDBMetrics creates database metrics and installs them on db.
// It returns nil when metrics are disabled; call Stop on shutdown otherwise.
func RegisterDBMetrics(ctx context.Context, db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled || meterProvider == nil || !meterProvider.IsEnabled() {
		logger.Debug("Database metrics disabled, skipping registration")
		return nil, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), sqlDB, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Use(metrics); err != nil {
		return nil, err
	}
	metrics.StartPoolStatsCollection(ctx)

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", cfg.PoolStatsInterval),
	)

	return metrics, nil
}
