// Package event holds the operator-facing side of catalog event delivery.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultDeadPageSize = 20
	maxDeadPageSize     = 100
)

// OutboxStore is the part of the outbox table the operator endpoints need
type OutboxStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
}

// OutboxService lets operators inspect dead-lettered catalog events and
// requeue them once the consumer that rejected them is fixed.
type OutboxService struct {
	store  OutboxStore
	logger *zap.Logger
}

func NewOutboxService(store OutboxStore, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{store: store, logger: logger.Named("outbox")}
}

// OutboxEntryDTO is one outbox row as shown to operators
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newOutboxEntryDTO(e *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// OutboxFilter pages through dead-lettered entries
type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (f OutboxFilter) normalize() OutboxFilter {
	f.Page = max(f.Page, 1)
	if f.PageSize < 1 {
		f.PageSize = defaultDeadPageSize
	}
	f.PageSize = min(f.PageSize, maxDeadPageSize)
	return f
}

// DeadLetterPage is one page of dead-lettered entries with the paging used
type DeadLetterPage struct {
	Entries  []OutboxEntryDTO
	Total    int64
	Page     int
	PageSize int
}

// OutboxStatsDTO counts entries per delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead returns the requested page of dead letters, most recent first
func (s *OutboxService) ListDead(ctx context.Context, filter OutboxFilter) (*DeadLetterPage, error) {
	filter = filter.normalize()
	entries, total, err := s.store.FindDead(ctx, filter.Page, filter.PageSize)
	if err != nil {
		return nil, shared.NewTransientStorageError("list dead-lettered events", err)
	}

	page := &DeadLetterPage{
		Entries:  make([]OutboxEntryDTO, 0, len(entries)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, newOutboxEntryDTO(e))
	}
	return page, nil
}

// RetryDead puts a dead letter back in the pending queue with a fresh retry
// budget. Entries that are not DEAD are refused with INVALID_STATE.
func (s *OutboxService) RetryDead(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Outbox entry not found")
	case err != nil:
		return nil, shared.NewTransientStorageError("load outbox entry", err)
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, err.Error())
	}
	if err := s.store.Update(ctx, entry); err != nil {
		return nil, shared.NewTransientStorageError("requeue outbox entry", err)
	}

	s.logger.Info("Dead letter requeued",
		zap.Stringer("id", id),
		zap.String("event_type", entry.EventType),
		zap.Stringer("aggregate_id", entry.AggregateID))
	dto := newOutboxEntryDTO(entry)
	return &dto, nil
}

func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, shared.NewTransientStorageError("count outbox entries", err)
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
