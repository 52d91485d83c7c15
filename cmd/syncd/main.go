package main

import (
	"github.com/Sokol111/ecommerce-sync/pkg/core/config"
	"github.com/Sokol111/ecommerce-sync/pkg/core/health"
	"github.com/Sokol111/ecommerce-sync/pkg/core/logger"
	"github.com/Sokol111/ecommerce-sync/pkg/core/worker"
	"github.com/Sokol111/ecommerce-sync/pkg/kafka"
	"github.com/Sokol111/ecommerce-sync/pkg/mongo"
	"github.com/Sokol111/ecommerce-sync/pkg/outbox"
	"github.com/Sokol111/ecommerce-sync/pkg/queue"
	"github.com/Sokol111/ecommerce-sync/pkg/syncer"
	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		logger.NewZapLoggingModule(),
		config.NewAppConfigModule(),
		health.NewReadinessModule(),
		mongo.NewMongoModule(),

		outbox.NewOutboxModule(),
		kafka.NewKafkaModule(),
		syncjob.NewSyncJobModule(),
		queue.NewQueueModule(),
		syncer.NewSyncerModule(),

		worker.NewWorkersModule(
			worker.Register[*outbox.Relay]("outbox-relay", worker.WithReady(), worker.WithShutdown()),
			worker.Register[*outbox.Janitor]("outbox-janitor", worker.WithReady()),
			worker.Register[*queue.Pool]("queue-pool", worker.WithReady(), worker.WithShutdown()),
			worker.Register[*syncer.Sweep]("reconcile-sweep", worker.WithReady()),
		),
	).Run()
}
