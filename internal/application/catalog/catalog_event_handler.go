package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditEntry is the record written for every committed catalog change
type AuditEntry struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	ProductID   string `json:"product_id"`
	ActorID     string `json:"actor_id"`
	OccurredAt  string `json:"occurred_at"`
	Description string `json:"description"`
}

// AuditSink receives audit entries. Implementations can forward them to a
// log pipeline, a table or another service.
type AuditSink interface {
	WriteAudit(ctx context.Context, entry AuditEntry) error
}

// CatalogEventHandler turns relayed catalog events into audit entries
type CatalogEventHandler struct {
	logger *zap.Logger
	sink   AuditSink
}

// NewCatalogEventHandler creates a new handler for catalog events
func NewCatalogEventHandler(logger *zap.Logger) *CatalogEventHandler {
	return &CatalogEventHandler{
		logger: logger,
	}
}

// WithSink sets the sink audit entries are written to
func (h *CatalogEventHandler) WithSink(sink AuditSink) *CatalogEventHandler {
	h.sink = sink
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *CatalogEventHandler) EventTypes() []string {
	return []string{
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductDeleted,
		catalog.EventTypeProductOptionsReconciled,
		catalog.EventTypeProductMediaReplaced,
	}
}

// Handle processes a catalog event
func (h *CatalogEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	description, err := describe(event)
	if err != nil {
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
			zap.Error(err),
		)
		return err
	}

	entry := AuditEntry{
		EventID:     event.EventID().String(),
		EventType:   event.EventType(),
		ProductID:   event.AggregateID().String(),
		ActorID:     event.ActorID().String(),
		OccurredAt:  event.OccurredAt().UTC().Format(time.RFC3339Nano),
		Description: description,
	}

	h.logger.Info("catalog change",
		zap.String("event_id", entry.EventID),
		zap.String("event_type", entry.EventType),
		zap.String("product_id", entry.ProductID),
		zap.String("actor_id", entry.ActorID),
		zap.String("description", entry.Description),
	)

	if h.sink != nil {
		if err := h.sink.WriteAudit(ctx, entry); err != nil {
			h.logger.Error("failed to write audit entry",
				zap.String("event_id", entry.EventID),
				zap.Error(err),
			)
			// Don't return error - a failing sink shouldn't put the event back in the outbox
		}
	}
	return nil
}

func describe(event shared.DomainEvent) (string, error) {
	switch e := event.(type) {
	case *catalog.ProductCreatedEvent:
		return fmt.Sprintf("created %q (sku %s, price %s)", e.Name, e.SKU, e.Price.String()), nil
	case *catalog.ProductUpdatedEvent:
		return fmt.Sprintf("updated %q to version %d", e.Name, e.Version), nil
	case *catalog.ProductDeletedEvent:
		return fmt.Sprintf("deleted product (sku %s)", e.SKU), nil
	case *catalog.ProductOptionsReconciledEvent:
		s := e.Summary
		return fmt.Sprintf("options reconciled to version %d: options +%d ~%d -%d, variants +%d ~%d -%d (moved %d)",
			e.Version, s.OptionsCreated, s.OptionsUpdated, s.OptionsDeleted,
			s.VariantsCreated, s.VariantsUpdated, s.VariantsDeleted, s.VariantsMoved), nil
	case *catalog.ProductMediaReplacedEvent:
		s := e.Summary
		return fmt.Sprintf("media replaced to version %d: %d items (+%d ~%d -%d), default %q",
			e.Version, s.Total, s.Created, s.Updated, s.Deleted, s.Default), nil
	default:
		return "", fmt.Errorf("unexpected event type: %s (%T)", event.EventType(), event)
	}
}

// Ensure CatalogEventHandler implements shared.EventHandler
var _ shared.EventHandler = (*CatalogEventHandler)(nil)
