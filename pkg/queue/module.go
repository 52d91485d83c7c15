package queue

import (
	"context"

	"go.uber.org/fx"
)

// NewQueueModule provides the durable task queue and its worker pool.
// Handlers are registered by the modules that own them, before the pool
// worker starts.
func NewQueueModule() fx.Option {
	return fx.Module("queue",
		fx.Provide(
			newConfig,
			NewMongoQueue,
			func(q *MongoQueue) Queue { return q },
			NewPool,
		),
		fx.Invoke(func(lc fx.Lifecycle, q *MongoQueue) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return q.EnsureIndexes(ctx)
				},
			})
		}),
	)
}
