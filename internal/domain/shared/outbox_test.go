package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("resets dead letter entry for retry", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:          uuid.New(),
			TenantID:    uuid.New(),
			EventID:     uuid.New(),
			EventType:   "procurement.vendor_bill.created",
			AggregateID: uuid.New(),
			Status:      OutboxStatusDead,
			RetryCount:  5,
			MaxRetries:  5,
			LastError:   "broker unavailable",
			NextRetryAt: nil,
			CreatedAt:   time.Now().Add(-time.Hour),
			UpdatedAt:   time.Now().Add(-time.Minute),
		}

		err := entry.ResetForRetry()
		assert.NoError(t, err)
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
		assert.True(t, entry.UpdatedAt.After(time.Now().Add(-time.Second)))
	})

	t.Run("fails for non-dead entry", func(t *testing.T) {
		testCases := []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		}

		for _, status := range testCases {
			entry := &OutboxEntry{
				ID:     uuid.New(),
				Status: status,
			}
			err := entry.ResetForRetry()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "can only retry dead letter entries")
		}
	})
}

func TestOutboxEntry_IsDead(t *testing.T) {
	t.Run("returns true for dead entries", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusDead}
		assert.True(t, entry.IsDead())
	})

	t.Run("returns false for non-dead entries", func(t *testing.T) {
		testCases := []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		}

		for _, status := range testCases {
			entry := &OutboxEntry{Status: status}
			assert.False(t, entry.IsDead())
		}
	})
}

func TestOutboxEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     OutboxStatus
		retryCount int
		expected   bool
	}{
		{"pending cannot retry", OutboxStatusPending, 0, false},
		{"failed with retries left can retry", OutboxStatusFailed, 2, true},
		{"failed at max retries cannot retry", OutboxStatusFailed, 5, false},
		{"dead cannot retry", OutboxStatusDead, 5, false},
		{"sent cannot retry", OutboxStatusSent, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &OutboxEntry{
				Status:     tt.status,
				RetryCount: tt.retryCount,
				MaxRetries: 5,
			}
			assert.Equal(t, tt.expected, entry.CanRetry())
		})
	}
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	t.Run("from pending", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusPending}
		assert.NoError(t, entry.MarkProcessing())
		assert.Equal(t, OutboxStatusProcessing, entry.Status)
	})

	t.Run("from failed", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusFailed}
		assert.NoError(t, entry.MarkProcessing())
		assert.Equal(t, OutboxStatusProcessing, entry.Status)
	})

	t.Run("from sent fails", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusSent}
		assert.Error(t, entry.MarkProcessing())
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusProcessing}

	entry.MarkSent()

	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}

func TestOutboxEntry_MarkFailed_MovesToDeadAfterMaxRetries(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		Status:     OutboxStatusProcessing,
		RetryCount: 4, // Already retried 4 times
		MaxRetries: 5,
	}

	entry.MarkFailed("publish timed out")

	assert.Equal(t, OutboxStatusDead, entry.Status)
	assert.Equal(t, 5, entry.RetryCount)
	assert.Equal(t, "publish timed out", entry.LastError)
	assert.True(t, entry.IsDead())
}

func TestOutboxEntry_MarkFailed_ExponentialBackoff(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		Status:     OutboxStatusProcessing,
		RetryCount: 0,
		MaxRetries: 5,
	}

	// First failure: 1s backoff
	entry.MarkFailed("error 1")
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.NotNil(t, entry.NextRetryAt)
	firstBackoff := entry.NextRetryAt.Sub(time.Now())
	assert.True(t, firstBackoff > 0 && firstBackoff <= 2*time.Second)

	// Second failure: 2s backoff
	entry.Status = OutboxStatusProcessing
	entry.MarkFailed("error 2")
	assert.Equal(t, 2, entry.RetryCount)
	secondBackoff := entry.NextRetryAt.Sub(time.Now())
	assert.True(t, secondBackoff > time.Second && secondBackoff <= 3*time.Second)

	// Third failure: 4s backoff
	entry.Status = OutboxStatusProcessing
	entry.MarkFailed("error 3")
	assert.Equal(t, 3, entry.RetryCount)
	thirdBackoff := entry.NextRetryAt.Sub(time.Now())
	assert.True(t, thirdBackoff > 3*time.Second && thirdBackoff <= 5*time.Second)
}
