package kafka

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Brokers is the bootstrap servers list, comma separated.
	Brokers string `mapstructure:"brokers"`
	// TopicPrefix namespaces event topics, e.g. "commerce.events".
	TopicPrefix string `mapstructure:"topic-prefix"`
	// DeliveryTimeout bounds the wait for a broker ack per message.
	DeliveryTimeout time.Duration `mapstructure:"delivery-timeout"`
	// FlushTimeout bounds the drain of in-flight messages on shutdown.
	FlushTimeout time.Duration `mapstructure:"flush-timeout"`
}

func (c *Config) applyDefaults() {
	if c.Brokers == "" {
		c.Brokers = "localhost:9092"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "commerce.events"
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 10 * time.Second
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 15 * time.Second
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("kafka"); sub != nil {
		if err := sub.UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load kafka config: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}
