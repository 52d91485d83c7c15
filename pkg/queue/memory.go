package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue with the same lease and retry
// semantics as the Mongo queue.
type MemoryQueue struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	order  []string
	policy RetryPolicy
	lease  time.Duration

	keepDone int
	keepDead int

	clock func() time.Time
}

func NewMemoryQueue(conf Config) *MemoryQueue {
	conf.applyDefaults()
	return &MemoryQueue{
		tasks:    make(map[string]*Task),
		policy:   conf.retryPolicy(),
		lease:    conf.LeaseDuration,
		keepDone: conf.KeepDone,
		keepDead: conf.KeepDead,
		clock:    time.Now,
	}
}

func copyTask(t *Task) *Task {
	clone := *t
	if t.Payload != nil {
		clone.Payload = make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			clone.Payload[k] = v
		}
	}
	if t.LeaseExpiresAt != nil {
		leaseExpiresAt := *t.LeaseExpiresAt
		clone.LeaseExpiresAt = &leaseExpiresAt
	}
	if t.FinishedAt != nil {
		finishedAt := *t.FinishedAt
		clone.FinishedAt = &finishedAt
	}
	return &clone
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored := copyTask(task)
	if err := stored.normalize(q.clock().UTC(), q.policy.MaxAttempts); err != nil {
		return nil, err
	}
	if _, exists := q.tasks[stored.ID]; exists {
		return nil, fmt.Errorf("duplicate task id %s", stored.ID)
	}

	q.tasks[stored.ID] = stored
	q.order = append(q.order, stored.ID)

	return copyTask(stored), nil
}

func (q *MemoryQueue) FetchAndLease(ctx context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock().UTC()
	for _, id := range q.order {
		t := q.tasks[id]
		if t.Status != TaskStatusReady || t.NextRunAt.After(now) {
			continue
		}
		leaseExpiresAt := now.Add(q.lease)
		t.Status = TaskStatusLeased
		t.LeaseExpiresAt = &leaseExpiresAt
		return copyTask(t), nil
	}
	return nil, ErrNoTask
}

func (q *MemoryQueue) Succeed(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	finishedAt := q.clock().UTC()
	t.Status = TaskStatusDone
	t.FinishedAt = &finishedAt
	t.LeaseExpiresAt = nil
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, id string, taskErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	now := q.clock().UTC()
	t.Attempts++
	t.LastError = taskErr
	t.LeaseExpiresAt = nil

	if t.Attempts >= t.MaxAttempts {
		t.Status = TaskStatusDead
		t.FinishedAt = &now
		return nil
	}

	t.Status = TaskStatusReady
	t.NextRunAt = now.Add(q.policy.Delay(t.Attempts))
	return nil
}

func (q *MemoryQueue) ReleaseExpired(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock().UTC()
	var released int64
	for _, t := range q.tasks {
		if t.Status != TaskStatusLeased || t.LeaseExpiresAt == nil || t.LeaseExpiresAt.After(now) {
			continue
		}
		t.Status = TaskStatusReady
		t.NextRunAt = now
		t.LeaseExpiresAt = nil
		released++
	}
	return released, nil
}

func (q *MemoryQueue) Prune(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pruned := q.pruneStatus(TaskStatusDone, q.keepDone)
	pruned += q.pruneStatus(TaskStatusDead, q.keepDead)
	return pruned, nil
}

func (q *MemoryQueue) pruneStatus(status TaskStatus, keep int) int64 {
	var finished []*Task
	for _, t := range q.tasks {
		if t.Status == status {
			finished = append(finished, t)
		}
	}
	if len(finished) <= keep {
		return 0
	}

	sort.Slice(finished, func(i, j int) bool {
		return finished[i].FinishedAt.After(*finished[j].FinishedAt)
	})

	var pruned int64
	for _, t := range finished[keep:] {
		delete(q.tasks, t.ID)
		pruned++
	}

	remaining := q.order[:0]
	for _, id := range q.order {
		if _, ok := q.tasks[id]; ok {
			remaining = append(remaining, id)
		}
	}
	q.order = remaining

	return pruned
}
