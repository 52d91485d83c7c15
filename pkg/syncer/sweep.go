package syncer

import (
	"context"
	"time"

	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"go.uber.org/zap"
)

// Sweep schedules reconciliation on an interval, independent of the
// event-driven path. Each tenant and entity pair becomes a reconcile
// job, so the comparison itself runs through the durable queue and
// leaves its own audit trail.
type Sweep struct {
	service *Service
	conf    Config
	log     *zap.Logger
}

func NewSweep(service *Service, conf Config, log *zap.Logger) *Sweep {
	conf.applyDefaults()
	return &Sweep{
		service: service,
		conf:    conf,
		log:     log.With(zap.String("component", "reconcile-sweep")),
	}
}

func (s *Sweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.conf.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweep) sweepOnce(ctx context.Context) {
	for _, tenantID := range s.conf.Tenants {
		for _, entity := range s.conf.Entities {
			_, err := s.service.QueueSyncJob(ctx, Request{
				TenantID: tenantID,
				JobType:  syncjob.JobTypeReconcile,
				// One reconcile slot per tenant and entity; repeated
				// sweeps coalesce while a comparison is still queued.
				SourceCollection: "reconcile." + entity,
				SourceDocID:      tenantID,
				Metadata:         map[string]any{syncjob.MetadataEntity: entity},
			})
			if err != nil {
				s.log.Error("failed to queue reconciliation",
					zap.String("tenantId", tenantID),
					zap.String("entity", entity),
					zap.Error(err),
				)
			}
		}
	}
}
