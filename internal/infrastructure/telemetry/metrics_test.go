package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newTestMeterProvider returns an SDK provider backed by a manual reader.
func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, reader
}

// collect returns the named metric from the reader, failing the test if absent.
func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not recorded", name)
	return m
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, MetricsConfig{
		Enabled:     false,
		ServiceName: "bubblehouse-connector-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	ctx := context.Background()

	counter, err := NewCounter(provider.Meter("test"), "test_total", "test counter", "{calls}")
	require.NoError(t, err)

	counter.Inc(ctx, AttrResult.String("success"))
	counter.Add(ctx, 4, AttrResult.String("success"))

	sum, ok := collect(t, reader, "test_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)
	assert.True(t, sum.IsMonotonic)
}

func TestHistogram(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	ctx := context.Background()

	histogram, err := NewHistogram(provider.Meter("test"), HistogramOpts{
		Name:        "test_duration_seconds",
		Description: "test histogram",
		Unit:        "s",
		Boundaries:  ExportDurationBuckets,
	})
	require.NoError(t, err)

	histogram.Record(ctx, 0.2)
	histogram.RecordDuration(ctx, 3*time.Second)

	hist, ok := collect(t, reader, "test_duration_seconds").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, ExportDurationBuckets, hist.DataPoints[0].Bounds)
	assert.InDelta(t, 3.2, hist.DataPoints[0].Sum, 1e-9)
}

func TestGauge(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	ctx := context.Background()

	gauge, err := NewGauge(provider.Meter("test"), "test_backlog", "test gauge", "{records}")
	require.NoError(t, err)

	gauge.Record(ctx, 10, AttrStatus.String("PENDING"))
	gauge.Record(ctx, 3, AttrStatus.String("PENDING"))

	g, ok := collect(t, reader, "test_backlog").Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(3), g.DataPoints[0].Value)

	status, ok := g.DataPoints[0].Attributes.Value(attribute.Key("status"))
	require.True(t, ok)
	assert.Equal(t, "PENDING", status.AsString())
}

func TestDurationBuckets_Sorted(t *testing.T) {
	for _, buckets := range [][]float64{ExportDurationBuckets, DBDurationBuckets} {
		assert.IsIncreasing(t, buckets)
	}
}
