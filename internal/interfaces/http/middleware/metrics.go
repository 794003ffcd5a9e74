package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var bodySizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 2000000}

type httpMetrics struct {
	requests      *telemetry.Counter
	latency       *telemetry.Histogram
	requestBytes  *telemetry.Histogram
	responseBytes *telemetry.Histogram
	inFlight      metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	var (
		m    httpMetrics
		err  error
		errs []error
	)
	histogram := func(name, description, unit string, bounds []float64) *telemetry.Histogram {
		h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name: name, Description: description, Unit: unit, Boundaries: bounds,
		})
		errs = append(errs, err)
		return h
	}

	m.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}")
	errs = append(errs, err)
	m.latency = histogram("http_server_request_duration_seconds", "Time taken to serve an HTTP request", "s", telemetry.HTTPDurationBuckets)
	m.requestBytes = histogram("http_server_request_size_bytes", "Size of HTTP request bodies", "By", bodySizeBuckets)
	m.responseBytes = histogram("http_server_response_size_bytes", "Size of HTTP response bodies", "By", bodySizeBuckets)
	m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// HTTPMetrics records request count, latency and body sizes per route
// pattern. With a nil meter, or when the instruments cannot be created, it
// only calls the next handler.
func HTTPMetrics(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	passThrough := func(c *gin.Context) { c.Next() }
	if meter == nil {
		return passThrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}
	return m.handle
}

func (m *httpMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	m.inFlight.Add(ctx, 1)
	defer m.inFlight.Add(ctx, -1)

	c.Next()

	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(routePattern(c)),
	}
	m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
	m.latency.RecordDuration(ctx, time.Since(start), attrs...)
	if n := c.Request.ContentLength; n > 0 {
		m.requestBytes.Record(ctx, float64(n), attrs...)
	}
	if n := c.Writer.Size(); n > 0 {
		m.responseBytes.Record(ctx, float64(n), attrs...)
	}
}

// routePattern uses the matched route so ids never become label values
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
