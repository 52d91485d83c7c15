package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *MemoryQueue {
	return NewMemoryQueue(Config{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		KeepDone:       2,
		KeepDead:       2,
	})
}

func newTestTask(id, kind string) *Task {
	return &Task{
		ID:   id,
		Kind: kind,
		Payload: map[string]any{
			"sourceCollection": "product-content",
			"sourceDocId":      "doc-" + id,
		},
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{InitialInterval: 2 * time.Second, Multiplier: 2, MaxInterval: 5 * time.Second}

	assert.Equal(t, 2*time.Second, policy.Delay(1))
	assert.Equal(t, 4*time.Second, policy.Delay(2))
	assert.Equal(t, 5*time.Second, policy.Delay(3), "delay is capped at the max interval")
}

func TestMemoryQueueEnqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("should stamp ready state and attempt ceiling", func(t *testing.T) {
		q := newTestQueue()

		task, err := q.Enqueue(ctx, newTestTask("t1", "sync"))

		require.NoError(t, err)
		assert.Equal(t, TaskStatusReady, task.Status)
		assert.Equal(t, 0, task.Attempts)
		assert.Equal(t, 3, task.MaxAttempts)
		assert.False(t, task.NextRunAt.IsZero())
	})

	t.Run("should reject a task without kind", func(t *testing.T) {
		q := newTestQueue()

		_, err := q.Enqueue(ctx, &Task{ID: "t1"})

		assert.Error(t, err)
	})
}

func TestMemoryQueueFetchAndLease(t *testing.T) {
	ctx := context.Background()

	t.Run("should lease oldest due task first", func(t *testing.T) {
		q := newTestQueue()

		_, err := q.Enqueue(ctx, newTestTask("t1", "sync"))
		require.NoError(t, err)
		_, err = q.Enqueue(ctx, newTestTask("t2", "sync"))
		require.NoError(t, err)

		task, err := q.FetchAndLease(ctx)
		require.NoError(t, err)
		assert.Equal(t, "t1", task.ID)
		assert.Equal(t, TaskStatusLeased, task.Status)
		assert.NotNil(t, task.LeaseExpiresAt)
	})

	t.Run("should not hand the same task to two workers", func(t *testing.T) {
		q := newTestQueue()

		_, err := q.Enqueue(ctx, newTestTask("t1", "sync"))
		require.NoError(t, err)

		_, err = q.FetchAndLease(ctx)
		require.NoError(t, err)

		_, err = q.FetchAndLease(ctx)
		assert.ErrorIs(t, err, ErrNoTask)
	})

	t.Run("should skip tasks scheduled in the future", func(t *testing.T) {
		q := newTestQueue()

		_, err := q.Enqueue(ctx, newTestTask("t1", "sync"))
		require.NoError(t, err)

		task, err := q.FetchAndLease(ctx)
		require.NoError(t, err)
		require.NoError(t, q.Fail(ctx, task.ID, "transient"))

		// The retry is scheduled with a backoff delay, so it is not due yet.
		_, err = q.FetchAndLease(ctx)
		assert.ErrorIs(t, err, ErrNoTask)
	})
}

func TestMemoryQueueFail(t *testing.T) {
	ctx := context.Background()

	t.Run("should reschedule with exponential backoff", func(t *testing.T) {
		q := newTestQueue()
		now := time.Now().UTC()
		q.clock = func() time.Time { return now }

		_, err := q.Enqueue(ctx, newTestTask("t1", "sync"))
		require.NoError(t, err)

		task, err := q.FetchAndLease(ctx)
		require.NoError(t, err)
		require.NoError(t, q.Fail(ctx, task.ID, "first failure"))

		// Jump past the first backoff window and fail again.
		now = now.Add(3 * time.Second)
		task, err = q.FetchAndLease(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, task.Attempts)
		require.NoError(t, q.Fail(ctx, task.ID, "second failure"))

		// Second retry delay doubles, so 3s later it is still not due.
		now = now.Add(3 * time.Second)
		_, err = q.FetchAndLease(ctx)
		assert.ErrorIs(t, err, ErrNoTask)

		now = now.Add(2 * time.Second)
		task, err = q.FetchAndLease(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, task.Attempts)
		assert.Equal(t, "second failure", task.LastError)
	})

	t.Run("should move an exhausted task to dead", func(t *testing.T) {
		q := newTestQueue()
		now := time.Now().UTC()
		q.clock = func() time.Time { return now }

		_, err := q.Enqueue(ctx, newTestTask("t1", "sync"))
		require.NoError(t, err)

		for attempt := 1; attempt <= 3; attempt++ {
			task, err := q.FetchAndLease(ctx)
			require.NoError(t, err, "attempt %d", attempt)
			require.NoError(t, q.Fail(ctx, task.ID, fmt.Sprintf("failure %d", attempt)))
			now = now.Add(time.Minute)
		}

		_, err = q.FetchAndLease(ctx)
		assert.ErrorIs(t, err, ErrNoTask)

		q.mu.Lock()
		dead := q.tasks["t1"]
		q.mu.Unlock()
		assert.Equal(t, TaskStatusDead, dead.Status)
		assert.Equal(t, 3, dead.Attempts)
		assert.NotNil(t, dead.FinishedAt)
	})
}

func TestMemoryQueueReleaseExpired(t *testing.T) {
	ctx := context.Background()

	q := NewMemoryQueue(Config{LeaseDuration: time.Minute})
	now := time.Now().UTC()
	q.clock = func() time.Time { return now }

	_, err := q.Enqueue(ctx, newTestTask("t1", "sync"))
	require.NoError(t, err)

	_, err = q.FetchAndLease(ctx)
	require.NoError(t, err)

	// Lease still valid: nothing to reap.
	released, err := q.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)

	now = now.Add(2 * time.Minute)
	released, err = q.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	task, err := q.FetchAndLease(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID, "the reaped task is leasable again")
}

func TestMemoryQueuePrune(t *testing.T) {
	ctx := context.Background()

	q := newTestQueue()
	now := time.Now().UTC()
	q.clock = func() time.Time { return now }

	for i := 1; i <= 4; i++ {
		_, err := q.Enqueue(ctx, newTestTask(fmt.Sprintf("t%d", i), "sync"))
		require.NoError(t, err)

		task, err := q.FetchAndLease(ctx)
		require.NoError(t, err)
		require.NoError(t, q.Succeed(ctx, task.ID))
		now = now.Add(time.Second)
	}

	pruned, err := q.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Nil(t, q.tasks["t1"], "oldest history entries go first")
	assert.Nil(t, q.tasks["t2"])
	assert.NotNil(t, q.tasks["t3"])
	assert.NotNil(t, q.tasks["t4"])
}
