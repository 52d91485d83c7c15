package outbox

import (
	"context"

	"go.uber.org/fx"
)

// NewOutboxModule provides the durable event store, the dispatcher and
// its background workers. A Handler must be provided elsewhere in the
// application graph.
func NewOutboxModule() fx.Option {
	return fx.Module("outbox",
		fx.Provide(
			newConfig,
			NewMongoStore,
			func(s *MongoStore) Store { return s },
			NewDispatcher,
			NewRelay,
			NewJanitor,
		),
		fx.Invoke(func(lc fx.Lifecycle, store *MongoStore) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return store.EnsureIndexes(ctx)
				},
			})
		}),
	)
}
