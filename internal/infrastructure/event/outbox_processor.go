package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// bookkeepingTimeout bounds each status write made after a delivery
const bookkeepingTimeout = 5 * time.Second

// OutboxProcessorConfig tunes the relay
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries overrides the per-entry budget when positive
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
	// ProcessingLease is the age after which a PROCESSING entry is requeued
	ProcessingLease time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxRetries:       shared.DefaultMaxRetries,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
		ProcessingLease:  5 * time.Minute,
	}
}

// OutboxProcessorConfigFrom overlays the configured event settings on the
// defaults. Zero values keep the default, except CleanupEnabled.
func OutboxProcessorConfigFrom(cfg config.EventConfig) OutboxProcessorConfig {
	out := DefaultOutboxProcessorConfig()
	out.CleanupEnabled = cfg.CleanupEnabled
	for _, o := range []struct {
		dst *int
		src int
	}{{&out.BatchSize, cfg.BatchSize}, {&out.MaxRetries, cfg.MaxRetries}} {
		if o.src > 0 {
			*o.dst = o.src
		}
	}
	for _, o := range []struct {
		dst *time.Duration
		src time.Duration
	}{
		{&out.PollInterval, cfg.PollInterval},
		{&out.CleanupRetention, cfg.CleanupRetention},
		{&out.ProcessingLease, cfg.ProcessingLease},
	} {
		if o.src > 0 {
			*o.dst = o.src
		}
	}
	return out
}

// OutboxProcessor relays committed outbox entries to the event bus. Delivery
// is at least once: an entry is marked SENT only after every handler accepted
// it.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventBus
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventBus,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		cfg:        cfg,
		logger:     logger.Named("outbox"),
	}
}

// Start runs the relay loop, plus the cleanup loop when enabled, until Stop
// or until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return errors.New("outbox processor already started")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)
	p.group.Go(func() error { return p.every(ctx, p.cfg.PollInterval, p.ProcessOnce) })
	if p.cfg.CleanupEnabled {
		p.group.Go(func() error { return p.every(ctx, p.cfg.CleanupInterval, p.cleanup) })
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Bool("cleanup_enabled", p.cfg.CleanupEnabled),
	)
	return nil
}

// Stop cancels the loops and waits for the current batch until ctx expires
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	group, cancel := p.group, p.cancel
	p.group, p.cancel = nil, nil
	p.mu.Unlock()
	if group == nil {
		return nil
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case err := <-done:
		p.logger.Info("outbox processor stopped")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, tick func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// ProcessOnce requeues entries whose claim outlived the lease, then relays one
// batch of pending entries and one batch of failed entries that are due. A
// lookup error ends the pass.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) {
	p.requeueStale(ctx)

	batches := []struct {
		name string
		find func() ([]*shared.OutboxEntry, error)
	}{
		{"pending", func() ([]*shared.OutboxEntry, error) { return p.repo.FindPending(ctx, p.cfg.BatchSize) }},
		{"retryable", func() ([]*shared.OutboxEntry, error) {
			return p.repo.FindRetryable(ctx, time.Now(), p.cfg.BatchSize)
		}},
	}
	for _, batch := range batches {
		entries, err := batch.find()
		if err != nil {
			p.logger.Error("outbox lookup failed", zap.String("batch", batch.name), zap.Error(err))
			return
		}
		p.relay(ctx, entries)
	}
}

func (p *OutboxProcessor) relay(ctx context.Context, entries []*shared.OutboxEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("outbox claim failed", zap.Int("entries", len(ids)), zap.Error(err))
		return
	}

	for i, entry := range claimed {
		if ctx.Err() != nil {
			p.release(ctx, claimed[i:])
			return
		}
		if err := p.deliver(ctx, entry); err != nil {
			if ctx.Err() != nil {
				// cut short by Stop, not a failed attempt
				p.release(ctx, claimed[i:])
				return
			}
			p.markFailed(ctx, entry, err)
			continue
		}
		entry.MarkSent()
		if err := p.persist(ctx, entry); err != nil {
			p.logger.Error("outbox entry relayed but not marked sent", entryFields(entry, zap.Error(err))...)
			continue
		}
		p.logger.Debug("event relayed", entryFields(entry)...)
	}
}

// persist writes the entry's new state. The write is detached from ctx, so an
// entry delivered just before Stop is still recorded.
func (p *OutboxProcessor) persist(ctx context.Context, entry *shared.OutboxEntry) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()
	return p.repo.Update(ctx, entry)
}

// release hands back claimed entries the stopping relay will not deliver
func (p *OutboxProcessor) release(ctx context.Context, entries []*shared.OutboxEntry) {
	for _, entry := range entries {
		entry.Release()
		if err := p.persist(ctx, entry); err != nil {
			p.logger.Error("outbox entry release failed", entryFields(entry, zap.Error(err))...)
		}
	}
	p.logger.Info("outbox batch interrupted", zap.Int("released", len(entries)))
}

func (p *OutboxProcessor) requeueStale(ctx context.Context) {
	if p.cfg.ProcessingLease <= 0 {
		return
	}
	cutoff := time.Now().Add(-p.cfg.ProcessingLease)
	n, err := p.repo.RequeueStale(ctx, cutoff)
	if err != nil {
		p.logger.Error("outbox requeue of stale claims failed", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Warn("outbox stale claims requeued", zap.Int64("entries", n), zap.Time("claimed_before", cutoff))
	}
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) error {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, event)
}

func (p *OutboxProcessor) markFailed(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	if p.cfg.MaxRetries > 0 {
		entry.MaxRetries = p.cfg.MaxRetries
	}
	entry.MarkFailed(cause.Error())

	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter",
			entryFields(entry, zap.Int("retry_count", entry.RetryCount), zap.Error(cause))...)
	} else {
		p.logger.Error("event relay failed",
			entryFields(entry, zap.Int("retry_count", entry.RetryCount), zap.Timep("next_retry_at", entry.NextRetryAt), zap.Error(cause))...)
	}
	if err := p.persist(ctx, entry); err != nil {
		p.logger.Error("outbox entry update failed", entryFields(entry, zap.Error(err))...)
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.cfg.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("outbox cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("outbox cleaned up", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}

func entryFields(entry *shared.OutboxEntry, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	}, extra...)
}
