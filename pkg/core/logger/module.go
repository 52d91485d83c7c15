package logger

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewZapLoggingModule creates a new fx module for zap logger initialization.
// It provides a configured *zap.Logger instance and integrates with fx lifecycle.
func NewZapLoggingModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			provideLogger,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config) (*zap.Logger, error) {
	log, err := newLogger(conf)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := log.Sync()
			if err != nil {
				// Sync on stderr returns EINVAL, which is harmless
				if pathErr, ok := err.(*os.PathError); ok && pathErr.Err.Error() == "invalid argument" {
					return nil
				}
				return err
			}
			return nil
		},
	})

	return log, nil
}
