package syncer

import (
	"context"
	"testing"

	"github.com/Sokol111/ecommerce-sync/pkg/queue"
	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func (f *fixture) leaseTask(t *testing.T) *queue.Task {
	t.Helper()
	task, err := f.queue.FetchAndLease(context.Background())
	require.NoError(t, err)
	return task
}

func TestWorkerHandleTask(t *testing.T) {
	ctx := context.Background()

	t.Run("should run a commerce to content job end to end", func(t *testing.T) {
		f := newFixture()

		job, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)

		require.NoError(t, f.worker.HandleTask(ctx, f.leaseTask(t)))

		finished, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusSuccess, finished.Status)
		assert.NotEmpty(t, finished.TargetID)
		assert.NotNil(t, finished.FinishedAt)
		require.NotEmpty(t, finished.Logs)
		assert.Equal(t, "sync started", finished.Logs[0].Message)

		docs, err := f.content.Find(ctx, CollectionProductContent, map[string]any{FieldCommerceSyncID: "p1"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Walnut Desk", docs[0]["title"])
	})

	t.Run("should fetch the live document for content originated jobs", func(t *testing.T) {
		f := newFixture()

		_, err := f.content.Create(ctx, CollectionProductContent, map[string]any{
			"_id": "pc1", "title": "Walnut Desk", "handle": "walnut-desk",
		})
		require.NoError(t, err)

		job, err := f.service.QueueSyncJob(ctx, Request{
			TenantID:         "tenant-1",
			JobType:          syncjob.JobTypeContentToCommerce,
			SourceCollection: CollectionProductContent,
			SourceDocID:      "pc1",
			TargetSystem:     SystemCommerce,
		})
		require.NoError(t, err)

		require.NoError(t, f.worker.HandleTask(ctx, f.leaseTask(t)))

		finished, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusSuccess, finished.Status)

		docs, err := f.commerce.Find(ctx, CollectionProduct, map[string]any{FieldContentSyncID: "pc1"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
	})

	t.Run("should skip an orphaned task without error", func(t *testing.T) {
		f := newFixture()

		task := &queue.Task{
			ID:   "t1",
			Kind: TaskKindSyncJob,
			Payload: map[string]any{
				"sourceCollection": CollectionProduct,
				"sourceDocId":      "ghost",
			},
		}

		assert.NoError(t, f.worker.HandleTask(ctx, task))
	})

	t.Run("should fail a commerce job missing its snapshot", func(t *testing.T) {
		f := newFixture()

		req := productRequest("p1")
		req.Metadata = nil
		job, err := f.service.QueueSyncJob(ctx, req)
		require.NoError(t, err)

		err = f.worker.HandleTask(ctx, f.leaseTask(t))
		require.ErrorIs(t, err, ErrMissingSourceData)

		failed, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusFailed, failed.Status)
		assert.NotEmpty(t, failed.ErrorMessage)
	})

	t.Run("should fail jobs for collections outside the dispatch table", func(t *testing.T) {
		f := newFixture()

		req := productRequest("p1")
		req.SourceCollection = "gift-card"
		job, err := f.service.QueueSyncJob(ctx, req)
		require.NoError(t, err)

		err = f.worker.HandleTask(ctx, f.leaseTask(t))
		require.Error(t, err)

		failed, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusFailed, failed.Status)
	})

	t.Run("should resolve snapshots on jobs decoded from bson", func(t *testing.T) {
		f := newFixture()

		req := Request{
			TenantID:         "tenant-1",
			JobType:          syncjob.JobTypeCommerceToContent,
			SourceCollection: CollectionVendor,
			SourceDocID:      "v1",
			TargetSystem:     SystemContent,
			Metadata: map[string]any{
				syncjob.MetadataSourceData: map[string]any{
					"_id":    "v1",
					"name":   "Acme Supply",
					"status": "active",
					"metadata": map[string]any{
						"brandColor": "#00ff00",
					},
					"tags": []any{"furniture", "wholesale"},
				},
			},
		}
		_, err := f.service.QueueSyncJob(ctx, req)
		require.NoError(t, err)

		stored, err := f.jobs.FindLatestQueued(ctx, CollectionVendor, "v1")
		require.NoError(t, err)

		// A job pulled from Mongo went through the BSON codec, which
		// rewrites nested objects into driver document types.
		raw, err := bson.Marshal(stored)
		require.NoError(t, err)
		var decoded syncjob.Job
		require.NoError(t, bson.Unmarshal(raw, &decoded))

		source, err := f.worker.resolveSource(ctx, &decoded)
		require.NoError(t, err)
		assert.Equal(t, "Acme Supply", source["name"])

		meta, ok := source["metadata"].(map[string]any)
		require.True(t, ok, "nested documents must come back as plain maps")
		assert.Equal(t, "#00ff00", meta["brandColor"])

		tags, ok := source["tags"].([]any)
		require.True(t, ok, "arrays must come back as plain slices")
		assert.Equal(t, []any{"furniture", "wholesale"}, tags)
	})

	t.Run("should keep failed attempts in history for retried tasks", func(t *testing.T) {
		f := newFixture()

		req := productRequest("p1")
		req.Metadata = nil
		job, err := f.service.QueueSyncJob(ctx, req)
		require.NoError(t, err)

		task := f.leaseTask(t)
		require.Error(t, f.worker.HandleTask(ctx, task))

		// The queue retry re-enters against a fresh queued-job lookup;
		// the failed row stays untouched and the retry is an orphan.
		assert.NoError(t, f.worker.HandleTask(ctx, task))

		failed, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusFailed, failed.Status)
	})
}
