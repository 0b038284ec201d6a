// Package bootstrap wires the connector's infrastructure for the command line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	exportapp "github.com/bubblehouse/connector/internal/application/export"
	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/infrastructure/bubblehouse"
	"github.com/bubblehouse/connector/internal/infrastructure/config"
	"github.com/bubblehouse/connector/internal/infrastructure/logger"
	"github.com/bubblehouse/connector/internal/infrastructure/persistence"
	"github.com/bubblehouse/connector/internal/infrastructure/queue"
	"github.com/bubblehouse/connector/internal/infrastructure/serializer"
	"github.com/bubblehouse/connector/internal/infrastructure/telemetry"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *persistence.Database
	Records *persistence.GormExportRecordRepository
	Handler *exportapp.OrderExportHandler
	Metrics *telemetry.ExportMetrics

	meterProvider *telemetry.MeterProvider
	redis         *redis.Client
	closers       []func(context.Context) error
}

// NewLogger builds the process logger from the log section of cfg
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
}

// New connects to the database, sets up telemetry and builds the export handler.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()

	if err := app.setupTelemetry(ctx); err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabase(&cfg.Database, app.Logger)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.onClose(func(context.Context) error { return db.Close() })
	app.Logger.Info("Database connected successfully")

	if err := app.instrumentDatabase(ctx); err != nil {
		return nil, err
	}

	app.Records = persistence.NewGormExportRecordRepository(db.DB)

	encoder := serializer.NewJSONSerializer()
	client, err := bubblehouse.NewClientFromSettings(cfg.Bubblehouse, app.Logger, bubblehouse.WithSerializer(encoder))
	if err != nil {
		return nil, fmt.Errorf("failed to create Bubblehouse client: %w", err)
	}

	var opts []exportapp.HandlerOption
	if app.Metrics != nil {
		opts = append(opts, exportapp.WithMetrics(app.Metrics))
	}
	app.Handler = exportapp.NewOrderExportHandler(
		persistence.NewGormOrderRepository(db.DB),
		export.NewOrderExtractor(),
		encoder,
		app.Records,
		client,
		app.Logger,
		opts...,
	)

	return app, nil
}

func (a *App) setupTelemetry(ctx context.Context) error {
	tc := a.Config.Telemetry

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.onClose(tp.Shutdown)

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OTEL logs: %w", err)
	}
	a.onClose(lp.Shutdown)
	a.Logger = telemetry.Bridge(a.Logger, lp, zapcore.InfoLevel)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.onClose(mp.Shutdown)
	a.meterProvider = mp

	return nil
}

func (a *App) instrumentDatabase(ctx context.Context) error {
	tc := a.Config.Telemetry

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    tc.Enabled && tc.DBTraceEnabled,
		LogFullSQL: tc.DBLogFullSQL,
	}, a.Logger)
	if err := tracing.Register(a.DB.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, a.DB.DB, a.meterProvider, telemetry.DefaultDBMetricsConfig(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to register database metrics: %w", err)
	}
	if dbMetrics != nil {
		a.onClose(func(context.Context) error {
			dbMetrics.Stop()
			return nil
		})
	}

	if !a.meterProvider.IsEnabled() {
		return nil
	}
	metrics, err := telemetry.NewExportMetrics(telemetry.ExportMetricsConfig{
		Meter:           a.meterProvider.Meter(telemetry.TracerName),
		Logger:          a.Logger,
		BacklogProvider: persistence.NewGormExportRecordRepository(a.DB.DB),
	})
	if err != nil {
		return fmt.Errorf("failed to create export metrics: %w", err)
	}
	a.Metrics = metrics
	a.onClose(func(context.Context) error {
		metrics.Stop()
		return nil
	})
	return nil
}

// Queue connects to Redis and returns the order queue and its per-order locker
func (a *App) Queue(ctx context.Context) (*queue.RedisOrderQueue, *queue.RedisOrderLocker, error) {
	if a.redis == nil {
		client, err := queue.NewRedisClient(ctx, a.Config.Redis)
		if err != nil {
			return nil, nil, err
		}
		a.redis = client
		a.onClose(func(context.Context) error { return client.Close() })
		a.Logger.Info("Redis connected successfully", zap.String("addr", a.Config.Redis.Addr()))
	}
	return queue.NewRedisOrderQueue(a.redis, a.Config.Queue), queue.NewRedisOrderLocker(a.redis, a.Config.Queue), nil
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close shuts everything down, last opened first
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
