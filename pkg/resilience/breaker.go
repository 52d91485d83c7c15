package resilience

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrOpen is returned by Allow when the breaker refuses the attempt.
var ErrOpen = gobreaker.ErrOpenState

// Breaker guards a downstream dependency with a consecutive-failure
// circuit breaker. After `threshold` consecutive failures the breaker
// opens; once `cooldown` has elapsed it admits exactly one probe and
// closes only if that probe succeeds.
type Breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker
}

// NewBreaker creates a configured breaker. A cold-started breaker is closed.
func NewBreaker(name string, threshold uint32, cooldown time.Duration, log *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{cb: gobreaker.NewTwoStepCircuitBreaker(settings)}
}

// Allow reports whether an attempt may proceed. When it may, the returned
// done callback must be invoked exactly once with the attempt's outcome.
// When the breaker is open (or the half-open probe slot is taken) Allow
// returns an error and a nil callback.
func (b *Breaker) Allow() (done func(success bool), err error) {
	return b.cb.Allow()
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
