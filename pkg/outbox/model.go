package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an outbox event.
type Status string

const (
	// StatusPending marks an event waiting to be dispatched.
	StatusPending Status = "pending"
	// StatusProcessing marks an event claimed by a dispatcher instance.
	// The claim lives in the store itself, so concurrent dispatchers
	// polling the same collection cannot race on one event.
	StatusProcessing Status = "processing"
	// StatusPublished marks an event successfully handed to its handler.
	StatusPublished Status = "published"
	// StatusFailed marks an event whose last publish attempt failed.
	StatusFailed Status = "failed"
	// StatusArchived removes an event from every active query.
	StatusArchived Status = "archived"
)

// defaultSource is stamped on events appended without an explicit source.
const defaultSource = "commerce-engine"

// Event is a durable domain event appended alongside the business
// mutation that produced it.
type Event struct {
	ID       string `bson:"_id"`
	TenantID string `bson:"tenantId,omitempty"`

	EventType     string `bson:"eventType"`
	AggregateType string `bson:"aggregateType"`
	AggregateID   string `bson:"aggregateId"`

	Payload  map[string]any    `bson:"payload,omitempty"`
	Metadata map[string]string `bson:"metadata,omitempty"`

	Source        string `bson:"source,omitempty"`
	CorrelationID string `bson:"correlationId,omitempty"`
	CausationID   string `bson:"causationId,omitempty"`
	ActorID       string `bson:"actorId,omitempty"`
	ActorRole     string `bson:"actorRole,omitempty"`
	NodeID        string `bson:"nodeId,omitempty"`
	Channel       string `bson:"channel,omitempty"`

	Status      Status     `bson:"status"`
	Error       string     `bson:"error,omitempty"`
	RetryCount  int        `bson:"retryCount"`
	CreatedAt   time.Time  `bson:"createdAt"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty"`
}

// normalize stamps identity, provenance defaults and the initial
// lifecycle state onto a freshly appended event.
func (e *Event) normalize(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Source == "" {
		e.Source = defaultSource
	}
	e.Status = StatusPending
	e.RetryCount = 0
	e.Error = ""
	e.PublishedAt = nil
	e.CreatedAt = now
}

// RetryResult reports the outcome of a RetryFailedEvents sweep.
type RetryResult struct {
	Retried int
	Skipped int
	// SkippedEvents lists the ids of failed events left untouched
	// because they reached the retry ceiling.
	SkippedEvents []string
}

// Stats aggregates event counts for observability. Archived events are
// not included.
type Stats struct {
	Total       int64
	ByStatus    map[Status]int64
	ByEventType map[string]int64
}

// BatchPublishError records a single failed item of a batch publish.
type BatchPublishError struct {
	EventID string
	Error   string
}

// BatchPublishResult is a partial-failure report: each id succeeds or
// fails independently, never as an all-or-nothing transaction.
type BatchPublishResult struct {
	Published int
	Failed    int
	Errors    []BatchPublishError
}
