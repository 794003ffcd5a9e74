package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOutboxStore struct {
	mock.Mock
}

func (m *mockOutboxStore) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxStore) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, page, pageSize)
	entries, _ := args.Get(0).([]*shared.OutboxEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *mockOutboxStore) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[shared.OutboxStatus]int64)
	return counts, args.Error(1)
}

func (m *mockOutboxStore) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func deadEntry() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:         uuid.New(),
		EventType:  "ProductOptionsReconciled",
		Status:     shared.OutboxStatusDead,
		RetryCount: 5,
		MaxRetries: 5,
		LastError:  "handler failed",
	}
}

func TestOutboxService_ListDead_ClampsPaging(t *testing.T) {
	ctx := context.Background()
	store := new(mockOutboxStore)
	svc := NewOutboxService(store, nil)

	store.On("FindDead", ctx, 1, 20).Return([]*shared.OutboxEntry{deadEntry()}, int64(1), nil).Once()
	store.On("FindDead", ctx, 3, 100).Return([]*shared.OutboxEntry{}, int64(0), nil).Once()

	page, err := svc.ListDead(ctx, OutboxFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "DEAD", page.Entries[0].Status)
	assert.Equal(t, "handler failed", page.Entries[0].LastError)

	page, err = svc.ListDead(ctx, OutboxFilter{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
	assert.NotNil(t, page.Entries)
	store.AssertExpectations(t)
}

func TestOutboxService_ListDead_StorageFailure(t *testing.T) {
	ctx := context.Background()
	store := new(mockOutboxStore)
	store.On("FindDead", ctx, 1, 20).Return(nil, int64(0), errors.New("connection reset"))

	_, err := NewOutboxService(store, nil).ListDead(ctx, OutboxFilter{})
	assert.True(t, shared.IsCode(err, shared.CodeTransientStorage))
}

func TestOutboxService_RetryDead(t *testing.T) {
	ctx := context.Background()

	t.Run("requeues a dead entry", func(t *testing.T) {
		store := new(mockOutboxStore)
		entry := deadEntry()
		store.On("FindByID", ctx, entry.ID).Return(entry, nil)
		store.On("Update", ctx, mock.MatchedBy(func(e *shared.OutboxEntry) bool {
			return e.Status == shared.OutboxStatusPending && e.RetryCount == 0 && e.LastError == ""
		})).Return(nil)

		dto, err := NewOutboxService(store, nil).RetryDead(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)
		store.AssertExpectations(t)
	})

	t.Run("unknown entry", func(t *testing.T) {
		store := new(mockOutboxStore)
		id := uuid.New()
		store.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := NewOutboxService(store, nil).RetryDead(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("entry still in flight", func(t *testing.T) {
		store := new(mockOutboxStore)
		entry := deadEntry()
		entry.Status = shared.OutboxStatusPending
		store.On("FindByID", ctx, entry.ID).Return(entry, nil)

		_, err := NewOutboxService(store, nil).RetryDead(ctx, entry.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestOutboxService_Stats(t *testing.T) {
	ctx := context.Background()
	store := new(mockOutboxStore)
	store.On("CountByStatus", ctx).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 2,
		shared.OutboxStatusSent:    40,
		shared.OutboxStatusDead:    1,
	}, nil)

	stats, err := NewOutboxService(store, nil).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutboxStatsDTO{Pending: 2, Sent: 40, Dead: 1, Total: 43}, *stats)
}
