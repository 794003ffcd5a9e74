package event

import (
	"context"
	"fmt"

	"github.com/shopdesk/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher stores events in outbox_events through the caller's
// transaction, so they commit or roll back with the catalog write.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx writes one pending entry per event. An event type the relay
// could not decode fails the write instead of dead-lettering later.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, event := range events {
		if !p.serializer.Knows(event.EventType()) {
			return fmt.Errorf("outbox: event type %s is not registered", event.EventType())
		}
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("outbox: serialize %s: %w", event.EventType(), err)
		}
		entries[i] = shared.NewOutboxEntry(event, payload)
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
