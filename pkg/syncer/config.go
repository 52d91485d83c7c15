package syncer

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Tenants lists the tenant ids swept by reconciliation.
	Tenants []string `mapstructure:"tenants"`
	// Entities lists the entity kinds each sweep compares.
	Entities []string `mapstructure:"entities"`
	// ReconcileInterval is the delay between sweeps.
	ReconcileInterval time.Duration `mapstructure:"reconcile-interval"`
}

func (c *Config) applyDefaults() {
	if len(c.Entities) == 0 {
		c.Entities = []string{EntityProduct, EntityVendor}
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = time.Hour
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("syncer"); sub != nil {
		if err := sub.UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load syncer config: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}
