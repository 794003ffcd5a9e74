package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)

// GormOutboxRepository stores outbox entries in outbox_events
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx returns a repository that writes through tx, so entries commit or
// roll back together with the catalog change that raised them.
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: tx}
}

type scope = func(*gorm.DB) *gorm.DB

func inStatus(statuses ...shared.OutboxStatus) scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where("status IN ?", statuses) }
}

func page(order string, offset, limit int) scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(order).Offset(offset).Limit(limit) }
}

func (r *GormOutboxRepository) list(ctx context.Context, scopes ...scope) ([]*shared.OutboxEntry, error) {
	var rows []*models.OutboxEventModel
	if err := r.db.WithContext(ctx).Scopes(scopes...).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*shared.OutboxEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.Entry()
	}
	return entries, nil
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEventModel, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.NewOutboxEventModel(e))
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return r.list(ctx, inStatus(shared.OutboxStatusPending), page("created_at ASC", 0, limit))
}

func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	due := func(db *gorm.DB) *gorm.DB { return db.Where("next_retry_at <= ?", before) }
	return r.list(ctx, inStatus(shared.OutboxStatusFailed), due, page("next_retry_at ASC", 0, limit))
}

// MarkProcessing claims the open entries among ids. Rows locked by another
// relay are skipped, so each entry is handed to one caller only.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []*models.OutboxEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids, shared.ClaimableStatuses).
			Find(&rows).Error
		if err != nil || len(rows) == 0 {
			return err
		}

		won := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			won = append(won, row.ID)
		}
		now := time.Now().UTC()
		err = tx.Model(&models.OutboxEventModel{}).
			Where("id IN ?", won).
			Updates(map[string]any{"status": shared.OutboxStatusProcessing, "updated_at": now}).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			row.Status, row.UpdatedAt = shared.OutboxStatusProcessing, now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	claimed := make([]*shared.OutboxEntry, len(rows))
	for i, row := range rows {
		claimed[i] = row.Entry()
	}
	return claimed, nil
}

func (r *GormOutboxRepository) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Scopes(inStatus(shared.OutboxStatusProcessing)).
		Where("updated_at < ?", before.UTC()).
		Updates(map[string]any{"status": shared.OutboxStatusPending, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// Update writes the whole entry back, stamping UpdatedAt
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(models.NewOutboxEventModel(entry)).Error
}

// DeleteOlderThan removes SENT entries processed before the cutoff. Entries
// still waiting for delivery are never removed.
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Scopes(inStatus(shared.OutboxStatusSent)).
		Where("processed_at < ?", before).
		Delete(&models.OutboxEventModel{})
	return res.RowsAffected, res.Error
}

func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var row models.OutboxEventModel
	switch err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, shared.ErrNotFound
	case err != nil:
		return nil, err
	}
	return row.Entry(), nil
}

// FindDead pages through dead letters, most recently failed first
func (r *GormOutboxRepository) FindDead(ctx context.Context, pageNum, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Scopes(inStatus(shared.OutboxStatusDead)).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*shared.OutboxEntry{}, 0, nil
	}

	entries, err := r.list(ctx,
		inStatus(shared.OutboxStatusDead),
		page("updated_at DESC", (pageNum-1)*pageSize, pageSize))
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		N      int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}
