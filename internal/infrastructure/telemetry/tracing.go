package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/shopdesk/backoffice"

// Span attributes set by the catalog services
var (
	AttrProductID      = attribute.Key("catalog.product_id")
	AttrPlanOperations = attribute.Key("catalog.plan.operations")
)

// Start opens an internal span named "component.operation" on the global
// tracer provider. The caller ends it.
func Start(ctx context.Context, component, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, component+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

// RecordError records err on span and marks the span failed. A nil err or
// span is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
