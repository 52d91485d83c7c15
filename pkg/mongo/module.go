package mongo

import (
	"context"

	"github.com/Sokol111/ecommerce-sync/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewMongoModule() fx.Option {
	return fx.Provide(
		newConfig,
		provideMongo,
	)
}

func provideMongo(lc fx.Lifecycle, log *zap.Logger, conf Config, components health.ComponentManager) (Mongo, error) {
	m, err := newMongo(log, conf)
	if err != nil {
		return nil, err
	}

	markReady := components.AddComponent("mongo")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return m.disconnect(ctx)
		},
	})

	return m, nil
}
