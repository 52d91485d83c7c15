package syncer

import (
	"github.com/Sokol111/ecommerce-sync/pkg/mongo"
	"github.com/Sokol111/ecommerce-sync/pkg/queue"
	"go.uber.org/fx"
)

// NewSyncerModule provides the orchestrator: dispatch service, routing
// tables, queue worker and reconciliation sweep. Both system clients
// are Mongo-backed mirrors namespaced per system.
func NewSyncerModule() fx.Option {
	return fx.Module("syncer",
		fx.Provide(
			newConfig,
			fx.Annotate(
				func(m mongo.Mongo) SystemClient { return NewMongoClient(m, SystemCommerce) },
				fx.ResultTags(`name:"commerce"`),
			),
			fx.Annotate(
				func(m mongo.Mongo) SystemClient { return NewMongoClient(m, SystemContent) },
				fx.ResultTags(`name:"content"`),
			),
			NewService,
			fx.Annotate(NewMappings, fx.ParamTags(`name:"commerce"`, `name:"content"`)),
			fx.Annotate(NewReconciler, fx.ParamTags(`name:"commerce"`, `name:"content"`)),
			NewRouter,
			fx.Annotate(NewWorker, fx.ParamTags(``, ``, `name:"content"`)),
			NewSweep,
		),
		fx.Invoke(func(pool *queue.Pool, w *Worker) error {
			return pool.RegisterHandler(TaskKindSyncJob, w.HandleTask)
		}),
	)
}
