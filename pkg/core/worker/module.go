package worker

import "go.uber.org/fx"

// NewWorkersModule provides the given worker registrations (built with
// Register) and forces their instantiation so the lifecycle hooks
// attach.
func NewWorkersModule(registrations ...any) fx.Option {
	return fx.Module("workers",
		fx.Provide(registrations...),
		fx.Invoke(fx.Annotate(
			func(workers []worker) {},
			fx.ParamTags(`group:"workers"`),
		)),
	)
}
