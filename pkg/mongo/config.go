package mongo

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ConnectionString string        `mapstructure:"connection-string"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	ReplicaSet       string        `mapstructure:"replica-set"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	Database         string        `mapstructure:"database"`
	DirectConnection bool          `mapstructure:"direct-connection"`
	ConnectTimeout   time.Duration `mapstructure:"connect-timeout"`
	MaxPoolSize      uint64        `mapstructure:"max-pool-size"`
	MinPoolSize      uint64        `mapstructure:"min-pool-size"`
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := v.Sub("mongo")
	if sub == nil {
		return Config{}, fmt.Errorf("mongo config section is missing")
	}

	var cfg Config
	if err := sub.UnmarshalExact(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load mongo config: %w", err)
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 100
	}

	return cfg, nil
}

func validateConfig(conf Config) error {
	if conf.ConnectionString != "" {
		return nil
	}
	if conf.Host == "" || conf.Port == 0 || conf.Database == "" {
		return fmt.Errorf("invalid mongo configuration")
	}
	return nil
}
