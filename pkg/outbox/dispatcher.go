package outbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sokol111/ecommerce-sync/pkg/resilience"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Handler consumes one event. It must be idempotent: delivery is
// at-least-once and failed events are retried.
type Handler interface {
	Handle(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

func (f HandlerFunc) Handle(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// RunResult summarizes one processing run.
type RunResult struct {
	Processed int
	Failed    int
	Skipped   int
}

// Dispatcher drains the outbox store. Events are processed sequentially
// within one run; multiple runs may execute concurrently across
// schedulers or instances, coordinated by the store's atomic claims.
type Dispatcher struct {
	store   Store
	handler Handler
	breaker *resilience.Breaker
	limiter *resilience.BatchLimiter
	conf    Config
	log     *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewDispatcher(store Store, handler Handler, conf Config, log *zap.Logger) *Dispatcher {
	conf.applyDefaults()
	return &Dispatcher{
		store:    store,
		handler:  handler,
		breaker:  resilience.NewBreaker("outbox-dispatcher", conf.BreakerThreshold, conf.BreakerCooldown, log),
		limiter:  resilience.NewBatchLimiter(conf.RateLimit),
		conf:     conf,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// ProcessOnce runs one dispatch batch. When eventType is non-empty only
// events of that type are fetched. Handler errors never escape the run:
// they become failed events, and only a tripped breaker aborts the batch.
func (d *Dispatcher) ProcessOnce(ctx context.Context, eventType string) (RunResult, error) {
	d.limiter.Reset()

	var (
		events []*Event
		err    error
	)
	if eventType != "" {
		events, err = d.store.FindByType(ctx, eventType, d.conf.BatchSize)
	} else {
		events, err = d.store.ListPending(ctx, "", d.conf.BatchSize)
	}
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to fetch outbox events: %w", err)
	}

	var result RunResult
	for i, event := range events {
		// A degraded downstream fails the whole run fast instead of
		// hammering it with the remaining events.
		if d.breaker.State() == gobreaker.StateOpen {
			d.log.Warn("circuit breaker open, aborting dispatch run",
				zap.Int("remaining", len(events)-i))
			result.Skipped += len(events) - i
			break
		}

		if !d.limiter.TryAcquire() {
			result.Skipped++
			continue
		}

		if event.RetryCount >= d.conf.MaxRetries {
			d.log.Warn("skipping event with exhausted retries",
				zap.String("id", event.ID),
				zap.String("eventType", event.EventType),
				zap.Int("retryCount", event.RetryCount))
			result.Skipped++
			continue
		}

		if !d.markInFlight(event.ID) {
			result.Skipped++
			continue
		}

		outcome := d.process(ctx, event)
		d.clearInFlight(event.ID)

		switch outcome {
		case outcomeProcessed:
			result.Processed++
		case outcomeFailed:
			result.Failed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeAborted:
			result.Skipped += len(events) - i
		}
		if outcome == outcomeAborted {
			break
		}
	}

	return result, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeAborted
)

func (d *Dispatcher) process(ctx context.Context, event *Event) outcome {
	claimed, err := d.store.Claim(ctx, event.ID)
	if err != nil {
		d.log.Error("failed to claim event", zap.String("id", event.ID), zap.Error(err))
		return outcomeSkipped
	}
	if !claimed {
		// Another dispatcher instance got there first.
		return outcomeSkipped
	}

	done, err := d.breaker.Allow()
	if err != nil {
		if releaseErr := d.store.Release(ctx, event.ID); releaseErr != nil {
			d.log.Error("failed to release claimed event", zap.String("id", event.ID), zap.Error(releaseErr))
		}
		return outcomeAborted
	}

	if err := d.invoke(ctx, event); err != nil {
		if markErr := d.store.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			d.log.Error("failed to record event failure", zap.String("id", event.ID), zap.Error(markErr))
		}
		done(false)
		d.log.Warn("event handler failed",
			zap.String("id", event.ID),
			zap.String("eventType", event.EventType),
			zap.Error(err))
		return outcomeFailed
	}

	if err := d.store.MarkPublished(ctx, event.ID); err != nil {
		d.log.Error("failed to mark event published", zap.String("id", event.ID), zap.Error(err))
	}
	done(true)
	return outcomeProcessed
}

// invoke runs the handler under a timeout so a hung handler cannot block
// the run forever. A timeout counts as a handler failure.
func (d *Dispatcher) invoke(ctx context.Context, event *Event) error {
	hctx, cancel := context.WithTimeout(ctx, d.conf.HandlerTimeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("handler panicked: %v", r)
			}
		}()
		errChan <- d.handler.Handle(hctx, event)
	}()

	select {
	case err := <-errChan:
		return err
	case <-hctx.Done():
		return fmt.Errorf("handler timed out after %v: %w", d.conf.HandlerTimeout, hctx.Err())
	}
}

func (d *Dispatcher) markInFlight(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.inflight[id]; exists {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) clearInFlight(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
}
