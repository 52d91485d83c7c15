package outbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(id string) *Event {
	return &Event{
		ID:            id,
		TenantID:      "tenant-1",
		EventType:     "order.created",
		AggregateType: "order",
		AggregateID:   "order-" + id,
		Payload:       map[string]any{"total": 42.5, "currency": "USD"},
	}
}

func TestMemoryStore_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps pending state and defaults", func(t *testing.T) {
		store := NewMemoryStore()

		stored, err := store.Append(ctx, newTestEvent("e1"))
		require.NoError(t, err)

		assert.Equal(t, StatusPending, stored.Status)
		assert.Equal(t, 0, stored.RetryCount)
		assert.Equal(t, defaultSource, stored.Source)
		assert.Empty(t, stored.Error)
		assert.Nil(t, stored.PublishedAt)
		assert.False(t, stored.CreatedAt.IsZero())
	})

	t.Run("generates id when missing", func(t *testing.T) {
		store := NewMemoryStore()

		event := newTestEvent("")
		stored, err := store.Append(ctx, event)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		store := NewMemoryStore()

		for _, mutate := range []func(*Event){
			func(e *Event) { e.EventType = "" },
			func(e *Event) { e.AggregateType = "" },
			func(e *Event) { e.AggregateID = "" },
		} {
			event := newTestEvent("e1")
			mutate(event)
			_, err := store.Append(ctx, event)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		}
	})
}

func TestMemoryStore_ListPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 5; i++ {
		event := newTestEvent(fmt.Sprintf("e%d", i))
		if i%2 == 1 {
			event.TenantID = "tenant-2"
		}
		_, err := store.Append(ctx, event)
		require.NoError(t, err)
	}

	t.Run("preserves creation order", func(t *testing.T) {
		events, err := store.ListPending(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, events, 5)
		for i, e := range events {
			assert.Equal(t, fmt.Sprintf("e%d", i), e.ID)
		}
	})

	t.Run("filters by tenant", func(t *testing.T) {
		events, err := store.ListPending(ctx, "tenant-2", 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		for _, e := range events {
			assert.Equal(t, "tenant-2", e.TenantID)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		events, err := store.ListPending(ctx, "", 3)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("excludes published events", func(t *testing.T) {
		require.NoError(t, store.MarkPublished(ctx, "e0"))
		events, err := store.ListPending(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, events, 4)
	})
}

func TestMemoryStore_Claim(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Append(ctx, newTestEvent("e1"))
	require.NoError(t, err)

	claimed, err := store.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim loses the race
	claimed, err = store.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, claimed)

	// Release returns the event to pending
	require.NoError(t, store.Release(ctx, "e1"))
	claimed, err = store.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryStore_MarkFailed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Append(ctx, newTestEvent("e1"))
	require.NoError(t, err)

	t.Run("retry count only increases", func(t *testing.T) {
		previous := 0
		for i := 0; i < 4; i++ {
			require.NoError(t, store.MarkFailed(ctx, "e1", "boom"))
			retried, err := store.RetryFailedEvents(ctx, "", 10)
			require.NoError(t, err)
			require.Equal(t, 1, retried.Retried)

			listed, err := store.ListPending(ctx, "", 0)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			assert.Greater(t, listed[0].RetryCount, previous)
			previous = listed[0].RetryCount
		}
		assert.Equal(t, 4, previous)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := store.MarkFailed(ctx, "nope", "boom")
		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestMemoryStore_MarkPublished(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Append(ctx, newTestEvent("e1"))
	require.NoError(t, err)

	require.NoError(t, store.MarkPublished(ctx, "e1"))

	events, err := store.ListPending(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, store.MarkPublished(ctx, "missing"), ErrEventNotFound)
}

func TestMemoryStore_RetryFailedEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// e1 fails once, e2 reaches the ceiling
	_, err := store.Append(ctx, newTestEvent("e1"))
	require.NoError(t, err)
	_, err = store.Append(ctx, newTestEvent("e2"))
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, "e1", "transient"))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.MarkFailed(ctx, "e2", "persistent"))
	}

	result, err := store.RetryFailedEvents(ctx, "", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"e2"}, result.SkippedEvents)

	// e1 is pending again with its error cleared; e2 remains failed
	pending, err := store.ListPending(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e1", pending[0].ID)
	assert.Empty(t, pending[0].Error)

	stats, err := store.GetEventStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByStatus[StatusFailed])
}

func TestMemoryStore_PurgeOldEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive windows", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Append(ctx, newTestEvent("e1"))
		require.NoError(t, err)

		for _, days := range []int{0, -1} {
			purged, err := store.PurgeOldEvents(ctx, days)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Zero(t, purged)
		}

		// Nothing was deleted
		events, err := store.ListPending(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("deletes only published events past the cutoff", func(t *testing.T) {
		store := NewMemoryStore()
		now := time.Now().UTC()

		// Old published event
		store.clock = func() time.Time { return now.AddDate(0, 0, -10) }
		_, err := store.Append(ctx, newTestEvent("old-published"))
		require.NoError(t, err)
		require.NoError(t, store.MarkPublished(ctx, "old-published"))

		// Old failed event must survive regardless of age
		_, err = store.Append(ctx, newTestEvent("old-failed"))
		require.NoError(t, err)
		require.NoError(t, store.MarkFailed(ctx, "old-failed", "boom"))

		// Fresh published event
		store.clock = func() time.Time { return now }
		_, err = store.Append(ctx, newTestEvent("fresh-published"))
		require.NoError(t, err)
		require.NoError(t, store.MarkPublished(ctx, "fresh-published"))

		purged, err := store.PurgeOldEvents(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)

		stats, err := store.GetEventStats(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.ByStatus[StatusPublished])
		assert.Equal(t, int64(1), stats.ByStatus[StatusFailed])
	})
}

func TestMemoryStore_Archive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Append(ctx, newTestEvent("e1"))
	require.NoError(t, err)

	t.Run("only published events can be archived", func(t *testing.T) {
		assert.Error(t, store.Archive(ctx, "e1"))
		require.NoError(t, store.MarkPublished(ctx, "e1"))
		require.NoError(t, store.Archive(ctx, "e1"))
	})

	t.Run("archived events leave active queries", func(t *testing.T) {
		stats, err := store.GetEventStats(ctx, "")
		require.NoError(t, err)
		assert.Zero(t, stats.Total)
	})
}

func TestMemoryStore_GetEventStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, newTestEvent(fmt.Sprintf("o%d", i)))
		require.NoError(t, err)
	}
	vendorEvent := newTestEvent("v1")
	vendorEvent.EventType = "vendor.updated"
	_, err := store.Append(ctx, vendorEvent)
	require.NoError(t, err)

	require.NoError(t, store.MarkPublished(ctx, "o0"))
	require.NoError(t, store.MarkFailed(ctx, "o1", "boom"))

	stats, err := store.GetEventStats(ctx, "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[StatusPublished])
	assert.Equal(t, int64(1), stats.ByStatus[StatusFailed])
	assert.Equal(t, int64(3), stats.ByEventType["order.created"])
	assert.Equal(t, int64(1), stats.ByEventType["vendor.updated"])
}

func TestMemoryStore_BatchPublish(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("rejects empty id list", func(t *testing.T) {
		result, err := store.BatchPublish(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Nil(t, result)
	})

	t.Run("records success and failure per item", func(t *testing.T) {
		_, err := store.Append(ctx, newTestEvent("e1"))
		require.NoError(t, err)
		_, err = store.Append(ctx, newTestEvent("e2"))
		require.NoError(t, err)

		result, err := store.BatchPublish(ctx, []string{"e1", "missing", "e2"})
		require.NoError(t, err)

		assert.Equal(t, 2, result.Published)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "missing", result.Errors[0].EventID)
		assert.Contains(t, result.Errors[0].Error, "not found")
	})
}
