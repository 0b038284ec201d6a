package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/bubblehouse/connector/internal/domain/export"
)

// ExportResult labels the outcome of one export attempt
type ExportResult string

const (
	ExportResultSuccess  ExportResult = "success"
	ExportResultRejected ExportResult = "rejected"
	ExportResultFailed   ExportResult = "failed"
)

// BacklogProvider reports how many export records sit in each status.
// The export log repository satisfies it.
type BacklogProvider interface {
	CountByStatus(ctx context.Context) (map[export.Status]int64, error)
}

// ExportMetricsConfig holds configuration for export metrics.
type ExportMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	BacklogProvider BacklogProvider
}

// ExportMetrics tracks export outcomes, export latency and the size of the export log.
type ExportMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	exportTotal    *Counter
	exportDuration *Histogram
	recordsByState *Gauge

	backlogProvider BacklogProvider

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewExportMetrics creates a new ExportMetrics instance.
func NewExportMetrics(cfg ExportMetricsConfig) (*ExportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	em := &ExportMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		backlogProvider: cfg.BacklogProvider,
		stopChan:        make(chan struct{}),
	}

	var err error

	em.exportTotal, err = NewCounter(
		cfg.Meter,
		"bubblehouse_export_total",
		"Total number of order export attempts",
		"{exports}",
	)
	if err != nil {
		return nil, err
	}

	em.exportDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bubblehouse_export_duration_seconds",
		Description: "Duration of an order export from fetch to log update",
		Unit:        "s",
		Boundaries:  ExportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	em.recordsByState, err = NewGauge(
		cfg.Meter,
		"bubblehouse_export_log_records",
		"Number of export log records per status",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	return em, nil
}

// RecordExport records the outcome and duration of one export attempt.
func (em *ExportMetrics) RecordExport(ctx context.Context, storeID int64, result ExportResult, duration time.Duration) {
	store := AttrStoreID.String(strconv.FormatInt(storeID, 10))
	em.exportTotal.Inc(ctx, store, AttrResult.String(string(result)))
	em.exportDuration.RecordDuration(ctx, duration, store, AttrResult.String(string(result)))
}

// RecordBacklog records the number of records in a status.
func (em *ExportMetrics) RecordBacklog(ctx context.Context, status export.Status, count int64) {
	em.recordsByState.Record(ctx, count, AttrStatus.String(status.String()))
}

// StartPeriodicCollection samples the export log every interval until Stop or ctx is done.
// It is non-blocking and only the first call has an effect.
func (em *ExportMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	em.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go em.runPeriodicCollection(ctx, interval)
	})
}

func (em *ExportMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	em.CollectBacklog(ctx)

	for {
		select {
		case <-em.stopChan:
			em.logger.Info("Stopping periodic export metrics collection")
			return
		case <-ctx.Done():
			em.logger.Info("Context cancelled, stopping periodic export metrics collection")
			return
		case <-ticker.C:
			em.CollectBacklog(ctx)
		}
	}
}

// CollectBacklog samples the export log once.
func (em *ExportMetrics) CollectBacklog(ctx context.Context) {
	if em.backlogProvider == nil {
		em.logger.Debug("No backlog provider configured, skipping export log metrics collection")
		return
	}

	counts, err := em.backlogProvider.CountByStatus(ctx)
	if err != nil {
		em.logger.Warn("Failed to count export log records", zap.Error(err))
		return
	}

	for status, count := range counts {
		em.RecordBacklog(ctx, status, count)
	}
}

// Stop stops the periodic collection.
func (em *ExportMetrics) Stop() {
	em.stopOnce.Do(func() {
		close(em.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewExportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
