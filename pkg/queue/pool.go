package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-sync/pkg/core/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler executes one task. Implementations must be idempotent: a task
// may be redelivered after a lease expiry or a crash before the ack.
type Handler func(ctx context.Context, task *Task) error

// Pool runs a fixed set of workers draining the queue, plus a janitor
// that reaps expired leases and prunes history. The handler table is
// sealed before Run starts; unknown kinds fail their task.
type Pool struct {
	queue    Queue
	handlers map[string]Handler
	conf     Config
	log      *zap.Logger
}

func NewPool(queue Queue, conf Config, log *zap.Logger) *Pool {
	conf.applyDefaults()
	return &Pool{
		queue:    queue,
		handlers: make(map[string]Handler),
		conf:     conf,
		log:      log.With(zap.String("component", "queue-pool")),
	}
}

// RegisterHandler binds a task kind to its handler. Must be called
// before Run; the table is not safe for concurrent mutation.
func (p *Pool) RegisterHandler(kind string, h Handler) error {
	if kind == "" {
		return fmt.Errorf("handler kind is required")
	}
	if h == nil {
		return fmt.Errorf("handler for kind %q is nil", kind)
	}
	if _, exists := p.handlers[kind]; exists {
		return fmt.Errorf("handler for kind %q already registered", kind)
	}
	p.handlers[kind] = h
	return nil
}

func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.conf.Concurrency; i++ {
		worker := i
		g.Go(func() error {
			return p.workLoop(ctx, worker)
		})
	}
	g.Go(func() error {
		return p.janitorLoop(ctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (p *Pool) workLoop(ctx context.Context, worker int) error {
	log := p.log.With(zap.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return nil
		}

		task, err := p.queue.FetchAndLease(ctx)
		if err == ErrNoTask {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.conf.PollInterval):
			}
			continue
		}
		if err != nil {
			log.Error("failed to lease task", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.conf.PollInterval):
			}
			continue
		}

		p.execute(ctx, log, task)
	}
}

func (p *Pool) execute(ctx context.Context, log *zap.Logger, task *Task) {
	log = log.With(
		zap.String("taskId", task.ID),
		zap.String("kind", task.Kind),
		zap.String("key", task.Key),
		zap.Int("attempt", task.Attempts+1),
	)

	// Handlers pick the task-scoped logger up from the context.
	ctx = logger.With(ctx, log)

	handler, ok := p.handlers[task.Kind]
	if !ok {
		log.Error("no handler registered for task kind")
		if err := p.queue.Fail(ctx, task.ID, fmt.Sprintf("no handler for kind %q", task.Kind)); err != nil {
			log.Error("failed to record task failure", zap.Error(err))
		}
		return
	}

	if err := handler(ctx, task); err != nil {
		log.Warn("task failed", zap.Error(err))
		if failErr := p.queue.Fail(ctx, task.ID, err.Error()); failErr != nil {
			log.Error("failed to record task failure", zap.Error(failErr))
		}
		return
	}

	if err := p.queue.Succeed(ctx, task.ID); err != nil {
		log.Error("failed to ack task", zap.Error(err))
		return
	}
	log.Debug("task finished")
}

func (p *Pool) janitorLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.conf.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			released, err := p.queue.ReleaseExpired(ctx)
			if err != nil {
				p.log.Error("lease reap failed", zap.Error(err))
			} else if released > 0 {
				p.log.Warn("released expired task leases", zap.Int64("released", released))
			}

			pruned, err := p.queue.Prune(ctx)
			if err != nil {
				p.log.Error("history prune failed", zap.Error(err))
			} else if pruned > 0 {
				p.log.Info("pruned finished tasks", zap.Int64("pruned", pruned))
			}
		}
	}
}
