package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	aggID := uuid.New()
	event := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("ProductUpdated", "Product", aggID, uuid.New())}

	entry := NewOutboxEntry(event, []byte(`{"ok":true}`))

	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, "ProductUpdated", entry.EventType)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, "Product", entry.AggregateType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing}
		entry.MarkSent()

		assert.Equal(t, OutboxStatusSent, entry.Status)
		require.NotNil(t, entry.ProcessedAt)
		assert.False(t, entry.IsDead())
	})

	t.Run("failure schedules a retry", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 5}
		entry.MarkFailed("boom")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		require.NotNil(t, entry.NextRetryAt)
		wait := time.Until(*entry.NextRetryAt)
		assert.True(t, wait > 0 && wait <= DefaultBaseBackoff, "wait %s", wait)
	})

	t.Run("release keeps the retry budget", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 2, MaxRetries: 5}
		entry.Release()

		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 2, entry.RetryCount)
		assert.False(t, entry.UpdatedAt.IsZero())
	})

	t.Run("last failure goes dead", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 4, MaxRetries: 5}
		entry.MarkFailed("final error")

		assert.True(t, entry.IsDead())
		assert.Equal(t, 5, entry.RetryCount)
		assert.Equal(t, "final error", entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
	})
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Second, RetryBackoff(0))
	assert.Equal(t, time.Second, RetryBackoff(1))
	assert.Equal(t, 2*time.Second, RetryBackoff(2))
	assert.Equal(t, 4*time.Second, RetryBackoff(3))
	assert.Equal(t, 256*time.Second, RetryBackoff(9))
	assert.Equal(t, MaxBackoff, RetryBackoff(10))
	assert.Equal(t, MaxBackoff, RetryBackoff(64))
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusFailed, MaxRetries: 1}
	assert.ErrorContains(t, entry.ResetForRetry(), "entry is FAILED")

	entry.MarkFailed("handler failed")
	require.True(t, entry.IsDead())

	require.NoError(t, entry.ResetForRetry())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Empty(t, entry.LastError)
	assert.Nil(t, entry.NextRetryAt)
}
