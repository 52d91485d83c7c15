package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Queue is a durable, at-least-once task queue. A task may be delivered
// more than once (lease expiry, process crash between handler and ack);
// handlers must be idempotent.
type Queue interface {
	// Enqueue persists a task in ready state.
	Enqueue(ctx context.Context, task *Task) (*Task, error)

	// FetchAndLease atomically leases the oldest due ready task.
	// Returns ErrNoTask when nothing is due.
	FetchAndLease(ctx context.Context) (*Task, error)

	// Succeed finishes a leased task, keeping it as done history.
	Succeed(ctx context.Context, id string) error

	// Fail records the attempt. Tasks below their attempt ceiling return
	// to ready with a backoff delay; exhausted tasks become dead.
	Fail(ctx context.Context, id string, taskErr string) error

	// ReleaseExpired returns tasks with expired leases to ready so a
	// crashed worker cannot strand them.
	ReleaseExpired(ctx context.Context) (int64, error)

	// Prune caps completed-task history, deleting the oldest entries
	// beyond the configured done/dead retention counts.
	Prune(ctx context.Context) (int64, error)
}

// RetryPolicy describes the backoff schedule applied to failed tasks.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 2 * time.Second
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 5 * time.Minute
	}
	return p
}

// Delay returns the backoff delay before the given retry attempt
// (1-based: the delay after the first failure is Delay(1)).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.Multiplier = p.Multiplier
	eb.MaxInterval = p.MaxInterval
	eb.RandomizationFactor = 0
	eb.Reset()

	delay := eb.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = eb.NextBackOff()
	}
	return delay
}
