package syncjob

import (
	"context"

	"go.uber.org/fx"
)

// NewSyncJobModule provides the durable sync job store.
func NewSyncJobModule() fx.Option {
	return fx.Module("syncjob",
		fx.Provide(
			NewMongoStore,
			func(s *MongoStore) Store { return s },
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
