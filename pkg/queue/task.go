package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	// TaskStatusReady marks a task eligible for leasing once nextRunAt passes.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusLeased marks a task held by a worker until its lease expires.
	TaskStatusLeased TaskStatus = "leased"
	// TaskStatusDone marks a successfully finished task, kept as history.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusDead marks a task that exhausted its attempts.
	TaskStatusDead TaskStatus = "dead"
)

// Task is one unit of durable, at-least-once work.
type Task struct {
	ID   string `bson:"_id"`
	Key  string `bson:"key"`
	Kind string `bson:"kind"`

	Payload map[string]any `bson:"payload,omitempty"`

	Status      TaskStatus `bson:"status"`
	Attempts    int        `bson:"attempts"`
	MaxAttempts int        `bson:"maxAttempts"`
	NextRunAt   time.Time  `bson:"nextRunAt"`
	LastError   string     `bson:"lastError,omitempty"`

	LeaseExpiresAt *time.Time `bson:"leaseExpiresAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
	FinishedAt     *time.Time `bson:"finishedAt,omitempty"`
}

func (t *Task) normalize(now time.Time, maxAttempts int) error {
	if t.Kind == "" {
		return errors.New("task kind is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Key == "" {
		t.Key = t.ID
	}
	if t.MaxAttempts <= 0 {
		t.MaxAttempts = maxAttempts
	}
	t.Status = TaskStatusReady
	t.Attempts = 0
	t.NextRunAt = now
	t.CreatedAt = now
	t.LeaseExpiresAt = nil
	t.FinishedAt = nil
	t.LastError = ""
	return nil
}

// ErrNoTask is returned by FetchAndLease when nothing is due.
var ErrNoTask = errors.New("no task is due")

// ErrTaskNotFound is returned for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")
