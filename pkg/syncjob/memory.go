package syncjob

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultListLimit = 100

// MemoryStore is an in-process Store with the same transition semantics
// as the Mongo store.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*Job),
		clock: time.Now,
	}
}

func copyJob(j *Job) *Job {
	clone := *j
	if j.Metadata != nil {
		clone.Metadata = make(map[string]any, len(j.Metadata))
		for k, v := range j.Metadata {
			clone.Metadata[k] = v
		}
	}
	if j.Logs != nil {
		clone.Logs = append([]LogEntry(nil), j.Logs...)
	}
	if j.StartedAt != nil {
		startedAt := *j.StartedAt
		clone.StartedAt = &startedAt
	}
	if j.FinishedAt != nil {
		finishedAt := *j.FinishedAt
		clone.FinishedAt = &finishedAt
	}
	return &clone
}

func (s *MemoryStore) Create(ctx context.Context, job *Job) (*Job, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyJob(job)
	stored.normalize(s.clock().UTC())

	if _, exists := s.jobs[stored.ID]; exists {
		return nil, fmt.Errorf("%w: duplicate job id %s", ErrInvalidJob, stored.ID)
	}

	s.jobs[stored.ID] = stored
	s.order = append(s.order, stored.ID)

	return copyJob(stored), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return copyJob(j), nil
}

func (s *MemoryStore) FindLatestQueued(ctx context.Context, sourceCollection, sourceDocID string) (*Job, error) {
	return s.findNewest(func(j *Job) bool {
		return j.Status == JobStatusQueued &&
			j.SourceCollection == sourceCollection &&
			j.SourceDocID == sourceDocID
	})
}

func (s *MemoryStore) FindActive(ctx context.Context, sourceCollection, sourceDocID string) (*Job, error) {
	return s.findNewest(func(j *Job) bool {
		return j.Status.IsActive() &&
			j.SourceCollection == sourceCollection &&
			j.SourceDocID == sourceDocID
	})
}

func (s *MemoryStore) findNewest(match func(*Job) bool) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		if j := s.jobs[s.order[i]]; match(j) {
			return copyJob(j), nil
		}
	}
	return nil, ErrJobNotFound
}

func (s *MemoryStore) MarkRunning(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status != JobStatusQueued {
		return false, nil
	}

	startedAt := s.clock().UTC()
	j.Status = JobStatusRunning
	j.StartedAt = &startedAt
	return true, nil
}

func (s *MemoryStore) AppendLog(ctx context.Context, id string, level, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	j.Logs = append(j.Logs, LogEntry{
		Timestamp: s.clock().UTC(),
		Level:     level,
		Message:   message,
	})
	return nil
}

func (s *MemoryStore) SetTargetID(ctx context.Context, id, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	j.TargetID = targetID
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, status JobStatus, errorMessage string) error {
	if status != JobStatusSuccess && status != JobStatusFailed {
		return fmt.Errorf("%w: cannot complete with status %q", ErrInvalidJob, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	finishedAt := s.clock().UTC()
	j.Status = status
	j.FinishedAt = &finishedAt
	j.ErrorMessage = errorMessage
	return nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, tenantID string, status JobStatus, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		j := s.jobs[s.order[i]]
		if j.Status != status {
			continue
		}
		if tenantID != "" && j.TenantID != tenantID {
			continue
		}
		result = append(result, copyJob(j))
	}
	return result, nil
}
