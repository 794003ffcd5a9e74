package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate during a write. Events are
// stored in the outbox with the write and relayed after commit.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	ActorID() uuid.UUID
}

// BaseDomainEvent is the envelope embedded by every concrete event. Its
// fields sit at the top level of the JSON payload.
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"event_type"`
	At        time.Time `json:"occurred_at"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Kind      string    `json:"aggregate_type"`
	// Actor is uuid.Nil for system writes
	Actor uuid.UUID `json:"actor_id"`
}

// NewBaseDomainEvent stamps a new envelope with a fresh ID and the current UTC time
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID, actorID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		At:        time.Now().UTC(),
		Aggregate: aggregateID,
		Kind:      aggregateType,
		Actor:     actorID,
	}
}

func (e BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseDomainEvent) EventType() string      { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate }
func (e BaseDomainEvent) AggregateType() string  { return e.Kind }
func (e BaseDomainEvent) ActorID() uuid.UUID     { return e.Actor }
