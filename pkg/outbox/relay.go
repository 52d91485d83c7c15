package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Relay periodically drains the outbox store through the dispatcher.
type Relay struct {
	dispatcher *Dispatcher
	conf       Config
	log        *zap.Logger
}

func NewRelay(dispatcher *Dispatcher, conf Config, log *zap.Logger) *Relay {
	conf.applyDefaults()
	return &Relay{
		dispatcher: dispatcher,
		conf:       conf,
		log:        log.With(zap.String("component", "outbox-relay")),
	}
}

func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.conf.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := r.dispatcher.ProcessOnce(ctx, r.conf.EventType)
			if err != nil {
				r.log.Error("dispatch run failed", zap.Error(err))
				continue
			}
			if result.Processed > 0 || result.Failed > 0 || result.Skipped > 0 {
				r.log.Info("dispatch run finished",
					zap.Int("processed", result.Processed),
					zap.Int("failed", result.Failed),
					zap.Int("skipped", result.Skipped),
				)
			}
		}
	}
}

// Janitor deletes published events that outlived the retention window.
// Pending and failed events are never purged regardless of age.
type Janitor struct {
	store Store
	conf  Config
	log   *zap.Logger
}

func NewJanitor(store Store, conf Config, log *zap.Logger) *Janitor {
	conf.applyDefaults()
	return &Janitor{
		store: store,
		conf:  conf,
		log:   log.With(zap.String("component", "outbox-janitor")),
	}
}

func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.conf.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			purged, err := j.store.PurgeOldEvents(ctx, j.conf.RetentionDays)
			if err != nil {
				j.log.Error("purge sweep failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				j.log.Info("purged published events",
					zap.Int64("purged", purged),
					zap.Int("retentionDays", j.conf.RetentionDays),
				)
			}
		}
	}
}
