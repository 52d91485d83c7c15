package queue

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Concurrency is the number of parallel task workers.
	Concurrency int `mapstructure:"concurrency"`
	// PollInterval is how long an idle worker waits before polling again.
	PollInterval time.Duration `mapstructure:"poll-interval"`
	// LeaseDuration is how long a fetched task stays invisible to other
	// workers before the reaper returns it to ready.
	LeaseDuration time.Duration `mapstructure:"lease-duration"`
	// MaxAttempts is the execution ceiling before a task goes dead.
	MaxAttempts int `mapstructure:"max-attempts"`
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration `mapstructure:"initial-backoff"`
	// BackoffMultiplier grows the delay between consecutive retries.
	BackoffMultiplier float64 `mapstructure:"backoff-multiplier"`
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration `mapstructure:"max-backoff"`
	// JanitorInterval is the delay between reaper and prune sweeps.
	JanitorInterval time.Duration `mapstructure:"janitor-interval"`
	// KeepDone caps how many finished tasks are kept as history.
	KeepDone int `mapstructure:"keep-done"`
	// KeepDead caps how many dead tasks are kept for inspection.
	KeepDead int `mapstructure:"keep-dead"`
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.BackoffMultiplier <= 1 {
		c.BackoffMultiplier = 2
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = 30 * time.Second
	}
	if c.KeepDone <= 0 {
		c.KeepDone = 100
	}
	if c.KeepDead <= 0 {
		c.KeepDead = 200
	}
}

func (c Config) retryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: c.InitialBackoff,
		Multiplier:      c.BackoffMultiplier,
		MaxInterval:     c.MaxBackoff,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("queue"); sub != nil {
		if err := sub.UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load queue config: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}
