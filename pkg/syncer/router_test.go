package syncer

import (
	"testing"

	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter() *Router {
	commerce := NewMemoryClient()
	content := NewMemoryClient()
	mappings := NewMappings(commerce, content)
	service := NewService(syncjob.NewMemoryStore(), nil, zap.NewNop())
	reconciler := NewReconciler(commerce, content, service, zap.NewNop())
	return NewRouter(mappings, reconciler)
}

func TestRouterResolve(t *testing.T) {
	router := newTestRouter()

	t.Run("should resolve every collection in the dispatch tables", func(t *testing.T) {
		for _, tc := range []struct {
			jobType    syncjob.JobType
			collection string
		}{
			{syncjob.JobTypeContentToCommerce, CollectionProductContent},
			{syncjob.JobTypeContentToCommerce, CollectionPage},
			{syncjob.JobTypeContentToCommerce, CollectionStoreBranding},
			{syncjob.JobTypeCommerceToContent, CollectionProduct},
			{syncjob.JobTypeCommerceToContent, CollectionVendor},
			{syncjob.JobTypeCommerceToContent, CollectionTenant},
			{syncjob.JobTypeCommerceToContent, CollectionOrder},
		} {
			fn, err := router.Resolve(&syncjob.Job{JobType: tc.jobType, SourceCollection: tc.collection})
			require.NoError(t, err, "%s/%s", tc.jobType, tc.collection)
			assert.NotNil(t, fn)
		}
	})

	t.Run("should resolve reconcile jobs by entity metadata", func(t *testing.T) {
		fn, err := router.Resolve(&syncjob.Job{
			JobType:  syncjob.JobTypeReconcile,
			Metadata: map[string]any{syncjob.MetadataEntity: EntityProduct},
		})

		require.NoError(t, err)
		assert.NotNil(t, fn)
	})

	t.Run("should fail loudly for collections outside the tables", func(t *testing.T) {
		_, err := router.Resolve(&syncjob.Job{
			JobType:          syncjob.JobTypeCommerceToContent,
			SourceCollection: "gift-card",
		})
		assert.ErrorContains(t, err, "gift-card")

		_, err = router.Resolve(&syncjob.Job{
			JobType:  syncjob.JobTypeReconcile,
			Metadata: map[string]any{syncjob.MetadataEntity: "warehouse"},
		})
		assert.ErrorContains(t, err, "warehouse")

		_, err = router.Resolve(&syncjob.Job{JobType: "bulk_import"})
		assert.Error(t, err)
	})
}
