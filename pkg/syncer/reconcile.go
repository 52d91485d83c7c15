package syncer

import (
	"context"

	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Entity kinds the reconciliation sweep knows how to compare.
const (
	EntityProduct = "product"
	EntityVendor  = "vendor"
)

type reconcileSpec struct {
	commerceCollection string
	contentCollection  string
	project            func(map[string]any) map[string]any
}

var reconcileSpecs = map[string]reconcileSpec{
	EntityProduct: {
		commerceCollection: CollectionProduct,
		contentCollection:  CollectionProductContent,
		project:            ProjectProduct,
	},
	EntityVendor: {
		commerceCollection: CollectionVendor,
		contentCollection:  CollectionStore,
		project:            ProjectVendor,
	},
}

// Reconciler is the self-healing path: it enumerates both systems,
// compares records by their foreign-id linkage and queues a directional
// sync job for every mismatch. A tenant with zero drift queues nothing.
type Reconciler struct {
	commerce SystemClient
	content  SystemClient
	service  *Service
	log      *zap.Logger
}

func NewReconciler(commerce, content SystemClient, service *Service, log *zap.Logger) *Reconciler {
	return &Reconciler{
		commerce: commerce,
		content:  content,
		service:  service,
		log:      log.With(zap.String("component", "reconciler")),
	}
}

// Reconcile compares one entity kind for one tenant and returns how
// many sync jobs it queued.
func (r *Reconciler) Reconcile(ctx context.Context, tenantID, entity string) (int, error) {
	spec, ok := reconcileSpecs[entity]
	if !ok {
		return 0, errUnknownEntity(entity)
	}

	commerceDocs, err := r.commerce.Find(ctx, spec.commerceCollection, map[string]any{"tenantId": tenantID})
	if err != nil {
		return 0, err
	}
	contentDocs, err := r.content.Find(ctx, spec.contentCollection, map[string]any{"tenantId": tenantID})
	if err != nil {
		return 0, err
	}

	contentByForeign := lo.Associate(contentDocs, func(doc map[string]any) (string, map[string]any) {
		return str(doc[FieldCommerceSyncID]), doc
	})

	queued := 0
	for _, doc := range commerceDocs {
		id := str(doc["_id"])
		target, linked := contentByForeign[id]
		if linked && !drifted(spec.project(doc), target) {
			continue
		}

		if _, err := r.service.QueueSyncJob(ctx, Request{
			TenantID:         tenantID,
			JobType:          syncjob.JobTypeCommerceToContent,
			SourceCollection: spec.commerceCollection,
			SourceDocID:      id,
			TargetSystem:     SystemContent,
			Metadata:         map[string]any{syncjob.MetadataSourceData: doc},
		}); err != nil {
			return queued, err
		}
		queued++
	}

	// Content records that never linked back are content-originated and
	// flow the other way.
	for _, doc := range contentDocs {
		if str(doc[FieldCommerceSyncID]) != "" {
			continue
		}
		if _, err := r.service.QueueSyncJob(ctx, Request{
			TenantID:         tenantID,
			JobType:          syncjob.JobTypeContentToCommerce,
			SourceCollection: spec.contentCollection,
			SourceDocID:      str(doc["_id"]),
			TargetSystem:     SystemCommerce,
		}); err != nil {
			return queued, err
		}
		queued++
	}

	if queued > 0 {
		r.log.Info("reconciliation found drift",
			zap.String("tenantId", tenantID),
			zap.String("entity", entity),
			zap.Int("queuedJobs", queued),
		)
	}
	return queued, nil
}

func drifted(expected, actual map[string]any) bool {
	for k, v := range expected {
		if actual[k] != v {
			return true
		}
	}
	return false
}

// syncFunc adapts one entity's reconciliation into the router's
// dispatch-table shape.
func (r *Reconciler) syncFunc(entity string) SyncFunc {
	return func(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
		queued, err := r.Reconcile(ctx, job.TenantID, entity)
		if err != nil {
			return Result{}, err
		}
		if queued == 0 {
			return Result{Action: ActionSkipped}, nil
		}
		return Result{Action: ActionUpdated}, nil
	}
}
