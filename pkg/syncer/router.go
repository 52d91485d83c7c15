package syncer

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
)

// SyncFunc executes one directional mapping for a bound job. The source
// argument is the content document, the commerce snapshot or the job
// metadata depending on the job type.
type SyncFunc func(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error)

// Router holds the closed dispatch tables, sealed at construction.
// Unknown collections and entities fail at the call site instead of
// falling through a generic string match.
type Router struct {
	contentToCommerce map[string]SyncFunc
	commerceToContent map[string]SyncFunc
	reconcile         map[string]SyncFunc
}

func NewRouter(mappings *Mappings, reconciler *Reconciler) *Router {
	return &Router{
		contentToCommerce: map[string]SyncFunc{
			CollectionProductContent: mappings.ProductContentToCommerce,
			CollectionPage:           mappings.PageToCommerce,
			CollectionStoreBranding:  mappings.StoreBrandingToCommerce,
		},
		commerceToContent: map[string]SyncFunc{
			CollectionProduct: mappings.ProductToContent,
			CollectionVendor:  mappings.VendorToContent,
			CollectionTenant:  mappings.TenantToContent,
			CollectionOrder:   mappings.OrderToContent,
		},
		reconcile: map[string]SyncFunc{
			EntityProduct: reconciler.syncFunc(EntityProduct),
			EntityVendor:  reconciler.syncFunc(EntityVendor),
		},
	}
}

// Resolve picks the mapping function for a job, or fails for job types
// and collections outside the tables.
func (r *Router) Resolve(job *syncjob.Job) (SyncFunc, error) {
	switch job.JobType {
	case syncjob.JobTypeContentToCommerce:
		if fn, ok := r.contentToCommerce[job.SourceCollection]; ok {
			return fn, nil
		}
		return nil, errUnknownCollection(string(job.JobType), job.SourceCollection)

	case syncjob.JobTypeCommerceToContent:
		if fn, ok := r.commerceToContent[job.SourceCollection]; ok {
			return fn, nil
		}
		return nil, errUnknownCollection(string(job.JobType), job.SourceCollection)

	case syncjob.JobTypeReconcile:
		entity := str(job.Metadata[syncjob.MetadataEntity])
		if fn, ok := r.reconcile[entity]; ok {
			return fn, nil
		}
		return nil, errUnknownEntity(entity)

	default:
		return nil, fmt.Errorf("unknown job type %q", job.JobType)
	}
}
