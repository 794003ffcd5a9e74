package telemetry

import (
	"context"
	"errors"

	"github.com/shopdesk/backoffice/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// OutcomeSuccess labels reconciliations that committed.
const OutcomeSuccess = "success"

// CatalogMetrics counts option and media reconciliations and the size of
// the plans they applied.
type CatalogMetrics struct {
	reconciliations *Counter
	operations      *Histogram
}

// NewCatalogMetrics creates the reconciliation instruments on meter.
func NewCatalogMetrics(meter metric.Meter) (*CatalogMetrics, error) {
	reconciliations, err := NewCounter(meter,
		"catalog_reconciliation_total",
		"Reconciliations by target and outcome",
		"{reconciliation}",
	)
	if err != nil {
		return nil, err
	}
	operations, err := NewHistogram(meter, HistogramOpts{
		Name:        "catalog_reconciliation_operations",
		Description: "Row operations applied per committed reconciliation",
		Unit:        "{operation}",
		Boundaries:  OperationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &CatalogMetrics{reconciliations: reconciliations, operations: operations}, nil
}

// RecordReconciliation records one reconciliation of target. Failures are
// labelled with their domain error code; operations are only observed on success.
func (m *CatalogMetrics) RecordReconciliation(ctx context.Context, target string, operations int, err error) {
	outcome := Outcome(err)
	m.reconciliations.Inc(ctx, AttrTarget.String(target), AttrOutcome.String(outcome))
	if err == nil {
		m.operations.Record(ctx, float64(operations), AttrTarget.String(target))
	}
}

// Outcome maps err to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "internal"
}
