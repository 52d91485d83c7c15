package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
)

const defaultListLimit = 100

// MemoryStore is an in-process Store implementation with the same
// transition semantics as the Mongo store. It backs unit tests and
// embedded single-process deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*Event
	order  []string
	clock  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*Event),
		clock:  time.Now,
	}
}

func copyEvent(e *Event) *Event {
	clone := *e
	if e.Payload != nil {
		clone.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			clone.Payload[k] = v
		}
	}
	if e.Metadata != nil {
		clone.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	if e.PublishedAt != nil {
		publishedAt := *e.PublishedAt
		clone.PublishedAt = &publishedAt
	}
	return &clone
}

func (s *MemoryStore) Append(ctx context.Context, event *Event) (*Event, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyEvent(event)
	stored.normalize(s.clock().UTC())

	if _, exists := s.events[stored.ID]; exists {
		return nil, fmt.Errorf("%w: duplicate event id %s", ErrInvalidEvent, stored.ID)
	}

	s.events[stored.ID] = stored
	s.order = append(s.order, stored.ID)

	return copyEvent(stored), nil
}

func (s *MemoryStore) ListPending(ctx context.Context, tenantID string, limit int) ([]*Event, error) {
	return s.list(func(e *Event) bool {
		return e.Status == StatusPending && (tenantID == "" || e.TenantID == tenantID)
	}, limit), nil
}

func (s *MemoryStore) FindByType(ctx context.Context, eventType string, limit int) ([]*Event, error) {
	return s.list(func(e *Event) bool {
		return e.Status == StatusPending && e.EventType == eventType
	}, limit), nil
}

// list returns matching events in creation order.
func (s *MemoryStore) list(match func(*Event) bool, limit int) []*Event {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Event, 0, limit)
	for _, id := range s.order {
		if len(result) == limit {
			break
		}
		if e := s.events[id]; match(e) {
			result = append(result, copyEvent(e))
		}
	}
	return result
}

func (s *MemoryStore) Claim(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok || e.Status != StatusPending {
		return false, nil
	}
	e.Status = StatusProcessing
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.events[id]; ok && e.Status == StatusProcessing {
		e.Status = StatusPending
	}
	return nil
}

func (s *MemoryStore) MarkPublished(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markPublishedLocked(id)
}

func (s *MemoryStore) markPublishedLocked(id string) error {
	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}

	switch e.Status {
	case StatusPublished:
		return nil
	case StatusArchived:
		return fmt.Errorf("cannot publish archived event %s", id)
	}

	publishedAt := s.clock().UTC()
	e.Status = StatusPublished
	e.PublishedAt = &publishedAt
	e.Error = ""
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id string, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}

	e.Status = StatusFailed
	e.Error = errText
	e.RetryCount++
	return nil
}

func (s *MemoryStore) RetryFailedEvents(ctx context.Context, tenantID string, maxRetries int) (*RetryResult, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &RetryResult{}
	for _, id := range s.order {
		e := s.events[id]
		if e.Status != StatusFailed {
			continue
		}
		if tenantID != "" && e.TenantID != tenantID {
			continue
		}
		if e.RetryCount >= maxRetries {
			result.Skipped++
			result.SkippedEvents = append(result.SkippedEvents, e.ID)
			continue
		}
		e.Status = StatusPending
		e.Error = ""
		result.Retried++
	}

	return result, nil
}

func (s *MemoryStore) PurgeOldEvents(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, fmt.Errorf("%w: olderThanDays must be at least 1, got %d", ErrInvalidArgument, olderThanDays)
	}

	cutoff := s.clock().UTC().AddDate(0, 0, -olderThanDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	remaining := s.order[:0]
	for _, id := range s.order {
		e := s.events[id]
		if e.Status == StatusPublished && e.PublishedAt != nil && e.PublishedAt.Before(cutoff) {
			delete(s.events, id)
			purged++
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining

	return purged, nil
}

func (s *MemoryStore) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if e.Status != StatusPublished {
		return fmt.Errorf("cannot archive event %s in status %s", id, e.Status)
	}

	e.Status = StatusArchived
	return nil
}

func (s *MemoryStore) GetEventStats(ctx context.Context, tenantID string) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*Event, 0, len(s.events))
	for _, id := range s.order {
		e := s.events[id]
		if e.Status == StatusArchived {
			continue
		}
		if tenantID != "" && e.TenantID != tenantID {
			continue
		}
		active = append(active, e)
	}

	byStatus := lo.CountValuesBy(active, func(e *Event) Status { return e.Status })
	byType := lo.CountValuesBy(active, func(e *Event) string { return e.EventType })

	stats := &Stats{
		Total:       int64(len(active)),
		ByStatus:    make(map[Status]int64, len(byStatus)),
		ByEventType: make(map[string]int64, len(byType)),
	}
	for status, count := range byStatus {
		stats.ByStatus[status] = int64(count)
	}
	for eventType, count := range byType {
		stats.ByEventType[eventType] = int64(count)
	}

	return stats, nil
}

func (s *MemoryStore) BatchPublish(ctx context.Context, ids []string) (*BatchPublishResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: event id list is empty", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BatchPublishResult{}
	for _, id := range ids {
		if err := s.markPublishedLocked(id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchPublishError{EventID: id, Error: err.Error()})
			continue
		}
		result.Published++
	}

	return result, nil
}
