// Package export orchestrates pushing storefront orders to Bubblehouse.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/domain/sales"
	"github.com/bubblehouse/connector/internal/infrastructure/logger"
	"github.com/bubblehouse/connector/internal/infrastructure/telemetry"
)

// OrderExportHandler exports one order per Process call and keeps an audit
// record of every attempt in the export log.
type OrderExportHandler struct {
	orders     sales.OrderRepository
	extractor  export.Extractor
	serializer export.Serializer
	records    export.ExportRecordRepository
	exporter   export.RemoteExporter
	logger     *zap.Logger

	tracer  trace.Tracer
	metrics *telemetry.ExportMetrics
}

// HandlerOption configures an OrderExportHandler
type HandlerOption func(*OrderExportHandler)

// WithTracer sets the tracer spans are started on. Defaults to the global tracer.
func WithTracer(tracer trace.Tracer) HandlerOption {
	return func(h *OrderExportHandler) {
		h.tracer = tracer
	}
}

// WithMetrics records the outcome and duration of every attempt
func WithMetrics(metrics *telemetry.ExportMetrics) HandlerOption {
	return func(h *OrderExportHandler) {
		h.metrics = metrics
	}
}

// NewOrderExportHandler creates a new OrderExportHandler
func NewOrderExportHandler(
	orders sales.OrderRepository,
	extractor export.Extractor,
	serializer export.Serializer,
	records export.ExportRecordRepository,
	exporter export.RemoteExporter,
	zapLogger *zap.Logger,
	opts ...HandlerOption,
) *OrderExportHandler {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	h := &OrderExportHandler{
		orders:     orders,
		extractor:  extractor,
		serializer: serializer,
		records:    records,
		exporter:   exporter,
		logger:     zapLogger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Process exports the order with the given ID.
//
// A PENDING record is saved before Bubblehouse is called and moved to SUCCESS
// once Bubblehouse accepts the order. Every failure is logged with its cause
// and reported as export.ErrExportFailed; the record, if one was written,
// stays PENDING.
func (h *OrderExportHandler) Process(ctx context.Context, orderID int64) error {
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, h.tracer, "order_export.process", telemetry.SpanAttrOrderID, orderID)
	defer span.End()

	ctx, _ = logger.WithOrderID(ctx, h.logger, orderID)

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		return h.fail(ctx, span, 0, fmt.Errorf("fetch order %d: %w", orderID, err), start)
	}
	ctx, _ = logger.WithStoreID(ctx, logger.FromContext(ctx), order.StoreID)

	if err := h.export(ctx, span, order); err != nil {
		return h.fail(ctx, span, order.StoreID, err, start)
	}

	telemetry.SetOK(span)
	h.recordOutcome(ctx, order.StoreID, telemetry.ExportResultSuccess, time.Since(start))
	return nil
}

func (h *OrderExportHandler) fail(ctx context.Context, span trace.Span, storeID int64, err error, start time.Time) error {
	telemetry.RecordError(span, err)
	logger.L(ctx).Error("Order export failed", zap.Error(err))
	h.recordOutcome(ctx, storeID, outcomeOf(err), time.Since(start))
	return export.ErrExportFailed
}

// export runs the steps that follow a successful fetch
func (h *OrderExportHandler) export(ctx context.Context, span trace.Span, order *sales.Order) error {
	telemetry.SetAttributes(span,
		telemetry.SpanAttrIncrementID, order.IncrementID,
		telemetry.SpanAttrStoreID, order.StoreID,
	)
	logger.L(ctx).Info("Exporting order", zap.String("increment_id", order.IncrementID))

	payload, err := h.extractor.Extract(order, order.IsDeleted)
	if err != nil {
		return fmt.Errorf("extract order %s: %w", order.IncrementID, err)
	}

	body, err := h.serializer.Serialize(payload)
	if err != nil {
		return fmt.Errorf("serialize order %s: %w", order.IncrementID, err)
	}

	record := h.records.Create()
	record.SetMessage(export.MessageTypeOrder, body)
	if err := h.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save pending record: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecordID, record.ID.String())

	accepted, err := h.exporter.ExportData(ctx, export.ExportTypeOrder, payload, order.StoreID)
	if err != nil {
		return fmt.Errorf("send order %s: %w", order.IncrementID, err)
	}
	if !accepted {
		return fmt.Errorf("%w: failed to export order %d", export.ErrRejected, order.ID)
	}

	record.MarkSuccess()
	if err := h.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save success record %s: %w", record.ID, err)
	}

	logger.L(ctx).Debug("Order exported", zap.String("record_id", record.ID.String()))
	return nil
}

func (h *OrderExportHandler) recordOutcome(ctx context.Context, storeID int64, result telemetry.ExportResult, d time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordExport(ctx, storeID, result, d)
}

func outcomeOf(err error) telemetry.ExportResult {
	if errors.Is(err, export.ErrRejected) {
		return telemetry.ExportResultRejected
	}
	return telemetry.ExportResultFailed
}
