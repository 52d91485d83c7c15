package logger

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is the minimum logging level.
	Level zapcore.Level

	// Development enables console encoding with human-readable timestamps.
	// Production mode (false) uses JSON encoding.
	Development bool

	// OutputPaths is a list of URLs or file paths to write logging output to.
	// If empty, defaults to stderr.
	OutputPaths []string
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := Config{Level: zapcore.InfoLevel}

	sub := v.Sub("logger")
	if sub == nil {
		return cfg, nil
	}

	var raw struct {
		Level       string   `mapstructure:"level"`
		Development bool     `mapstructure:"development"`
		OutputPaths []string `mapstructure:"outputPaths"`
	}
	if err := sub.Unmarshal(&raw); err != nil {
		return cfg, fmt.Errorf("failed to load logger config: %w", err)
	}

	if raw.Level != "" {
		level, err := zapcore.ParseLevel(raw.Level)
		if err != nil {
			return cfg, fmt.Errorf("invalid log level '%s': %w", raw.Level, err)
		}
		cfg.Level = level
	}

	cfg.Development = raw.Development
	cfg.OutputPaths = raw.OutputPaths

	return cfg, nil
}
