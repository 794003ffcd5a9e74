package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopdesk/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newManualMeter returns a meter whose measurements can be collected on demand.
func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestCounter(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(provider.Meter("test"), "requests_total", "Requests", "{request}")
	require.NoError(t, err)

	counter.Add(ctx, 5, attribute.String("method", "GET"))
	counter.Inc(ctx, attribute.String("method", "GET"))
	counter.Inc(ctx, attribute.String("method", "PUT"))

	sum := collect(t, reader)["requests_total"].Data.(metricdata.Sum[int64])
	byMethod := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		method, _ := dp.Attributes.Value("method")
		byMethod[method.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"GET": 6, "PUT": 1}, byMethod)
}

func TestHistogram_RecordDuration(t *testing.T) {
	reader, provider := newManualMeter(t)

	h, err := telemetry.NewHistogram(provider.Meter("test"), telemetry.HistogramOpts{
		Name:       "latency_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)

	h.RecordDuration(context.Background(), 250*time.Millisecond)

	hist := collect(t, reader)["latency_seconds"].Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.25, hist.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, telemetry.HTTPDurationBuckets, hist.DataPoints[0].Bounds)
}

func TestGauge(t *testing.T) {
	reader, provider := newManualMeter(t)

	g, err := telemetry.NewGauge(provider.Meter("test"), "pool_open", "Open connections", "{connection}")
	require.NoError(t, err)

	g.Record(context.Background(), 3)
	g.Record(context.Background(), 7)

	gauge := collect(t, reader)["pool_open"].Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}
