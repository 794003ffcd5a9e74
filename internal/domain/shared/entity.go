package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps shared by every catalog row
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns an entity with a fresh ID, stamped now
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BaseAggregateRoot is embedded by aggregate roots.
// Version counts committed writes. It is reported to clients but never used
// as a precondition for an update. Recorded events are written to the outbox
// in the transaction that persists the aggregate.
type BaseAggregateRoot struct {
	BaseEntity
	Version   int
	CreatedBy *uuid.UUID
	events    []DomainEvent
}

// NewAggregateRoot starts a new aggregate at version 1. A nil creator is
// stored as NULL.
func NewAggregateRoot(createdBy uuid.UUID) BaseAggregateRoot {
	root := BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
	if createdBy != uuid.Nil {
		root.CreatedBy = &createdBy
	}
	return root
}

// MarkWritten bumps the version and the update timestamp
func (a *BaseAggregateRoot) MarkWritten() {
	a.Version++
	a.UpdatedAt = time.Now().UTC()
}

// RecordEvent queues an event for the outbox
func (a *BaseAggregateRoot) RecordEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// GetDomainEvents returns the queued events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.events
}

// ClearDomainEvents drops the queued events once they are committed
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.events = nil
}
