package kafka

import (
	"context"

	"github.com/Sokol111/ecommerce-sync/pkg/outbox"
	"go.uber.org/fx"
)

// NewKafkaModule provides the producer and binds the outbox handler to
// it, so drained events land on the event bus.
func NewKafkaModule() fx.Option {
	return fx.Module("kafka",
		fx.Provide(
			newConfig,
			NewProducer,
			NewEnvelopeHandler,
			func(h *EnvelopeHandler) outbox.Handler { return h },
		),
		fx.Invoke(func(lc fx.Lifecycle, producer Producer) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					producer.Close()
					return nil
				},
			})
		}),
	)
}
