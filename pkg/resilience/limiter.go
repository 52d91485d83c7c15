package resilience

import (
	"sync"

	"golang.org/x/time/rate"
)

// BatchLimiter is a fixed-capacity token bucket that never refills on its
// own. It caps the amount of work attempted within one processing batch;
// the owner calls Reset at the start of each batch to refill it.
type BatchLimiter struct {
	mu      sync.Mutex
	max     int
	limiter *rate.Limiter
}

// NewBatchLimiter creates a limiter holding maxTokens tokens.
// A non-positive capacity disables limiting entirely.
func NewBatchLimiter(maxTokens int) *BatchLimiter {
	l := &BatchLimiter{max: maxTokens}
	l.limiter = newBucket(maxTokens)
	return l
}

func newBucket(maxTokens int) *rate.Limiter {
	if maxTokens <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	// Zero refill rate: the bucket only holds its initial burst.
	return rate.NewLimiter(rate.Limit(0), maxTokens)
}

// TryAcquire takes one token, reporting false once the bucket is empty.
func (l *BatchLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.Allow()
}

// Reset refills the bucket to capacity.
func (l *BatchLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = newBucket(l.max)
}
