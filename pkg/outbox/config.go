package outbox

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// BatchSize caps how many events one dispatch run fetches.
	BatchSize int `mapstructure:"batch-size"`
	// PollInterval is the relay's delay between dispatch runs.
	PollInterval time.Duration `mapstructure:"poll-interval"`
	// EventType optionally restricts the relay to one event type.
	EventType string `mapstructure:"event-type"`
	// MaxRetries is the retry ceiling; events at or above it are never
	// handed to the handler again.
	MaxRetries int `mapstructure:"max-retries"`
	// HandlerTimeout bounds a single handler invocation.
	HandlerTimeout time.Duration `mapstructure:"handler-timeout"`
	// RateLimit caps handler invocations per run. Zero disables the cap.
	RateLimit int `mapstructure:"rate-limit"`
	// BreakerThreshold is the consecutive-failure count that opens the breaker.
	BreakerThreshold uint32 `mapstructure:"breaker-threshold"`
	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration `mapstructure:"breaker-cooldown"`
	// RetentionDays is how long published events are kept before purging.
	RetentionDays int `mapstructure:"retention-days"`
	// PurgeInterval is the janitor's delay between purge sweeps.
	PurgeInterval time.Duration `mapstructure:"purge-interval"`
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = time.Minute
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = 24 * time.Hour
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("outbox"); sub != nil {
		if err := sub.UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load outbox config: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}
