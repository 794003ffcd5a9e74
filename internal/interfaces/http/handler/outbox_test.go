package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/application/event"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
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
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Get(1).(int64), args.Error(2)
}

func (m *mockOutboxStore) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

func (m *mockOutboxStore) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func deadEntry() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "ProductOptionsSynced",
		AggregateID:   uuid.New(),
		AggregateType: "Product",
		Status:        shared.OutboxStatusDead,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "handler timeout",
		CreatedAt:     time.Now().Add(-time.Hour),
		UpdatedAt:     time.Now(),
	}
}

func setupOutboxRouter(store *mockOutboxStore) *gin.Engine {
	h := NewOutboxHandler(event.NewOutboxService(store, nil))
	r := newTestRouter(testClaims())
	r.GET("/v1/system/outbox/stats", h.Stats)
	r.GET("/v1/system/outbox/dead", h.ListDead)
	r.POST("/v1/system/outbox/dead/:id/retry", h.RetryDead)
	return r
}

func TestOutboxListDead(t *testing.T) {
	store := new(mockOutboxStore)
	store.On("FindDead", mock.Anything, 2, 5).Return([]*shared.OutboxEntry{deadEntry()}, int64(6), nil)

	w := doRequest(setupOutboxRouter(store), http.MethodGet, "/v1/system/outbox/dead?page=2&page_size=5", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var entries []event.OutboxEntryDTO
	resp := decodeResponse(t, w, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEAD", entries[0].Status)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestOutboxListDead_PageSizeTooLarge(t *testing.T) {
	store := new(mockOutboxStore)

	w := doRequest(setupOutboxRouter(store), http.MethodGet, "/v1/system/outbox/dead?page_size=1000", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "FindDead", mock.Anything, mock.Anything, mock.Anything)
}

func TestOutboxRetryDead(t *testing.T) {
	t.Run("requeues", func(t *testing.T) {
		store := new(mockOutboxStore)
		entry := deadEntry()
		store.On("FindByID", mock.Anything, entry.ID).Return(entry, nil)
		store.On("Update", mock.Anything, mock.MatchedBy(func(e *shared.OutboxEntry) bool {
			return e.Status == shared.OutboxStatusPending && e.RetryCount == 0
		})).Return(nil)

		w := doRequest(setupOutboxRouter(store), http.MethodPost, "/v1/system/outbox/dead/"+entry.ID.String()+"/retry", "")

		require.Equal(t, http.StatusOK, w.Code)
		var got event.OutboxEntryDTO
		decodeResponse(t, w, &got)
		assert.Equal(t, "PENDING", got.Status)
		assert.Empty(t, got.LastError)
		store.AssertExpectations(t)
	})

	t.Run("unknown entry", func(t *testing.T) {
		store := new(mockOutboxStore)
		id := uuid.New()
		store.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := doRequest(setupOutboxRouter(store), http.MethodPost, "/v1/system/outbox/dead/"+id.String()+"/retry", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("entry not dead", func(t *testing.T) {
		store := new(mockOutboxStore)
		entry := deadEntry()
		entry.Status = shared.OutboxStatusSent
		store.On("FindByID", mock.Anything, entry.ID).Return(entry, nil)

		w := doRequest(setupOutboxRouter(store), http.MethodPost, "/v1/system/outbox/dead/"+entry.ID.String()+"/retry", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeError(t, w).Code)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestOutboxStats(t *testing.T) {
	store := new(mockOutboxStore)
	store.On("CountByStatus", mock.Anything).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 3,
		shared.OutboxStatusSent:    40,
		shared.OutboxStatusDead:    1,
	}, nil)

	w := doRequest(setupOutboxRouter(store), http.MethodGet, "/v1/system/outbox/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	var stats event.OutboxStatsDTO
	decodeResponse(t, w, &stats)
	assert.Equal(t, int64(44), stats.Total)
	assert.Equal(t, int64(1), stats.Dead)
}

func TestOutboxStats_StorageDown(t *testing.T) {
	store := new(mockOutboxStore)
	store.On("CountByStatus", mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	w := doRequest(setupOutboxRouter(store), http.MethodGet, "/v1/system/outbox/stats", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeTransientStorage, decodeError(t, w).Code)
}
