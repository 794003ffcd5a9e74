package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	productIDKey contextKey = "product_id"
)

// correlationKeys are copied onto every log line written through L
var correlationKeys = []contextKey{requestIDKey, userIDKey, productIDKey}

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID records the authenticated user in ctx
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithProductID records the product a request operates on
func WithProductID(ctx context.Context, productID string) context.Context {
	return context.WithValue(ctx, productIDKey, productID)
}

// GetRequestID returns the request ID in ctx, if any
func GetRequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// GetUserID returns the user ID in ctx, if any
func GetUserID(ctx context.Context) string { return stringValue(ctx, userIDKey) }

// GetProductID returns the product ID in ctx, if any
func GetProductID(ctx context.Context) string { return stringValue(ctx, productIDKey) }

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetTraceID returns the active trace ID, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// L returns the context logger enriched with trace_id, span_id and the
// request, user and product identifiers present in ctx.
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the correlation fields found in ctx to logger
func Enrich(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(CorrelationFields(ctx)...)
}

// CorrelationFields returns the non-empty correlation fields carried by ctx
func CorrelationFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, len(correlationKeys)+2)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, key := range correlationKeys {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	return fields
}
