package config

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewAppConfigModule creates a new fx module for application configuration.
// It provides AppConfig loaded from environment variables and a *viper.Viper
// instance bound to the resolved config file.
//
// Required environment variables:
//   - APP_ENV: Environment name (e.g., "local", "staging", "pro")
//   - APP_SERVICE_NAME: Service name
//   - APP_SERVICE_VERSION: Service version
//
// Optional environment variables:
//   - CONFIG_FILE: Full path to config file (default: ./configs/config.{env}.yaml)
//   - CONFIG_DIR: Directory containing config files
func NewAppConfigModule() fx.Option {
	return fx.Module("appconfig",
		fx.Provide(
			newAppConfig,
			newViper,
		),
		fx.Invoke(func(log *zap.Logger, conf AppConfig) {
			log.Info("loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("configFile", conf.ConfigFile),
			)
		}),
	)
}
