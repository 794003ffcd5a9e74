package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

// An entry starts PENDING, is claimed as PROCESSING by the relay and ends
// SENT, or FAILED until its retries run out and it goes DEAD. Operators can
// requeue a DEAD entry as PENDING.
const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// ClaimableStatuses are the states the relay may pick an entry up from
var ClaimableStatuses = []OutboxStatus{OutboxStatusPending, OutboxStatusFailed}

// Relay retry policy
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// OutboxEntry is one stored event awaiting relay
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps a serialized event as a pending entry
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSent records a successful relay
func (e *OutboxEntry) MarkSent() {
	now := time.Now().UTC()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed relay attempt. The entry is scheduled for
// another attempt after RetryBackoff, or goes DEAD once MaxRetries attempts
// have failed.
func (e *OutboxEntry) MarkFailed(reason string) {
	now := time.Now().UTC()
	e.RetryCount++
	e.LastError = reason
	e.UpdatedAt = now
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// Release hands a claimed entry back to the queue without spending a retry
func (e *OutboxEntry) Release() {
	e.Status = OutboxStatusPending
	e.UpdatedAt = time.Now().UTC()
}

// IsDead reports whether the relay gave up on the entry
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// ResetForRetry requeues a dead entry with a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return fmt.Errorf("entry is %s, only DEAD entries can be requeued", e.Status)
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// RetryBackoff returns the wait after the given failed attempt. It doubles
// from DefaultBaseBackoff and is capped at MaxBackoff.
func RetryBackoff(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval: DefaultBaseBackoff,
		Multiplier:      2,
		MaxInterval:     MaxBackoff,
	}
	b.Reset()
	wait := b.NextBackOff()
	for i := 1; i < attempt && wait < MaxBackoff; i++ {
		wait = b.NextBackOff()
	}
	return wait
}

// OutboxRepository stores outbox entries for the relay
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending returns up to limit PENDING entries, oldest first
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns FAILED entries whose retry time is not after before
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims the entries and returns those this caller won
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// RequeueStale returns entries still PROCESSING since before the cutoff
	// to PENDING. Their relay crashed or lost the final update.
	RequeueStale(ctx context.Context, before time.Time) (int64, error)
	// DeleteOlderThan removes SENT entries processed before the cutoff
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
