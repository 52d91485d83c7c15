package outbox

import "context"

// Store is the durable, append-only event log. All mutation happens via
// single-row atomic status transitions; the store is the source of
// mutual exclusion between dispatcher instances.
type Store interface {
	// Append validates the event, stamps pending state and persists it.
	// Returns the stored event.
	Append(ctx context.Context, event *Event) (*Event, error)

	// ListPending returns pending events in creation order (FIFO per
	// tenant), optionally filtered by tenant. A non-positive limit
	// defaults to 100.
	ListPending(ctx context.Context, tenantID string, limit int) ([]*Event, error)

	// FindByType returns pending events of one event type in creation order.
	FindByType(ctx context.Context, eventType string, limit int) ([]*Event, error)

	// Claim atomically transitions pending -> processing. It reports
	// false when the event is no longer pending, which is how a
	// concurrent dispatcher loses the race.
	Claim(ctx context.Context, id string) (bool, error)

	// Release returns a claimed event to pending without recording a failure.
	Release(ctx context.Context, id string) error

	// MarkPublished transitions pending/processing/failed -> published
	// and stamps publishedAt. Returns ErrEventNotFound for unknown ids.
	MarkPublished(ctx context.Context, id string) error

	// MarkFailed records the failure reason and atomically increments
	// retryCount. Returns ErrEventNotFound for unknown ids.
	MarkFailed(ctx context.Context, id string, errText string) error

	// RetryFailedEvents resets failed events with retryCount below
	// maxRetries back to pending and clears their error. Events at or
	// above the ceiling are reported in SkippedEvents and left failed.
	RetryFailedEvents(ctx context.Context, tenantID string, maxRetries int) (*RetryResult, error)

	// PurgeOldEvents deletes published events whose publishedAt precedes
	// the cutoff. olderThanDays < 1 is ErrInvalidArgument; pending and
	// failed events are never touched regardless of age.
	PurgeOldEvents(ctx context.Context, olderThanDays int) (int64, error)

	// Archive transitions a published event to archived, removing it
	// from every active query.
	Archive(ctx context.Context, id string) error

	// GetEventStats aggregates counts by status and by event type,
	// optionally scoped to one tenant.
	GetEventStats(ctx context.Context, tenantID string) (*Stats, error)

	// BatchPublish marks multiple events published, recording success or
	// failure independently per id. An empty id list is ErrInvalidArgument.
	BatchPublish(ctx context.Context, ids []string) (*BatchPublishResult, error)
}

func validateEvent(e *Event) error {
	if e == nil {
		return ErrInvalidEvent
	}
	if e.EventType == "" {
		return errEventField("eventType")
	}
	if e.AggregateType == "" {
		return errEventField("aggregateType")
	}
	if e.AggregateID == "" {
		return errEventField("aggregateId")
	}
	return nil
}
