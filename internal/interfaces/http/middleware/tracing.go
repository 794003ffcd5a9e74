// Package middleware provides the HTTP middleware chain of the back office API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// Provider overrides the global tracer provider, mainly for tests
	Provider trace.TracerProvider
}

// Tracing wraps otelgin so that every request gets a server span named after
// its route pattern, e.g. "PUT /v1/products/:id/options".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	var opts []otelgin.Option
	if cfg.Provider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.Provider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanEnricher tags the request span with the correlation and caller IDs and
// marks it as failed for 4xx and 5xx responses. Place it after JWTAuthMiddleware
// so the user ID is known.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if userID := GetJWTUserID(c); userID != "" {
			span.SetAttributes(attribute.String("user_id", userID))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("gin.errors", c.Errors.String()))
		}
	}
}
