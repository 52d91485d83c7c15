package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/Sokol111/ecommerce-sync/pkg/queue"
	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	commerce   *MemoryClient
	content    *MemoryClient
	jobs       *syncjob.MemoryStore
	queue      *queue.MemoryQueue
	service    *Service
	reconciler *Reconciler
	worker     *Worker
}

func newFixture() *fixture {
	f := &fixture{
		commerce: NewMemoryClient(),
		content:  NewMemoryClient(),
		jobs:     syncjob.NewMemoryStore(),
		queue:    queue.NewMemoryQueue(queue.Config{}),
	}
	f.service = NewService(f.jobs, f.queue, zap.NewNop())
	mappings := NewMappings(f.commerce, f.content)
	f.reconciler = NewReconciler(f.commerce, f.content, f.service, zap.NewNop())
	router := NewRouter(mappings, f.reconciler)
	f.worker = NewWorker(f.jobs, router, f.content, zap.NewNop())
	return f
}

type failingEnqueueQueue struct {
	queue.Queue
}

func (failingEnqueueQueue) Enqueue(ctx context.Context, task *queue.Task) (*queue.Task, error) {
	return nil, errors.New("queue unavailable")
}

func productRequest(docID string) Request {
	return Request{
		TenantID:         "tenant-1",
		JobType:          syncjob.JobTypeCommerceToContent,
		SourceCollection: CollectionProduct,
		SourceDocID:      docID,
		TargetSystem:     SystemContent,
		Metadata: map[string]any{
			syncjob.MetadataSourceData: map[string]any{
				"_id":   docID,
				"title": "Walnut Desk",
			},
		},
	}
}

func TestServiceQueueSyncJob(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist a queued job and enqueue its task", func(t *testing.T) {
		f := newFixture()

		job, err := f.service.QueueSyncJob(ctx, productRequest("p1"))

		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusQueued, job.Status)

		task, err := f.queue.FetchAndLease(ctx)
		require.NoError(t, err)
		assert.Equal(t, TaskKindSyncJob, task.Kind)
		assert.Equal(t, CollectionProduct, task.Payload["sourceCollection"])
		assert.Equal(t, "p1", task.Payload["sourceDocId"])
	})

	t.Run("should coalesce onto an existing queued job", func(t *testing.T) {
		f := newFixture()

		first, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)
		second, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)

		_, err = f.queue.FetchAndLease(ctx)
		require.NoError(t, err)
		_, err = f.queue.FetchAndLease(ctx)
		assert.ErrorIs(t, err, queue.ErrNoTask, "only one task for coalesced requests")
	})

	t.Run("should queue behind a running job instead of dropping", func(t *testing.T) {
		f := newFixture()

		first, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)

		claimed, err := f.jobs.MarkRunning(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, claimed)

		second, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, syncjob.JobStatusQueued, second.Status)
	})

	t.Run("should not touch different documents", func(t *testing.T) {
		f := newFixture()

		first, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)
		second, err := f.service.QueueSyncJob(ctx, productRequest("p2"))
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("should fail the job when its task cannot be enqueued", func(t *testing.T) {
		f := newFixture()
		broken := NewService(f.jobs, failingEnqueueQueue{f.queue}, zap.NewNop())

		_, err := broken.QueueSyncJob(ctx, productRequest("p1"))
		require.Error(t, err)

		// A job without a driving task must not hold the coalescing slot.
		_, err = f.jobs.FindLatestQueued(ctx, CollectionProduct, "p1")
		assert.ErrorIs(t, err, syncjob.ErrJobNotFound)

		failed, err := f.jobs.ListByStatus(ctx, "tenant-1", syncjob.JobStatusFailed, 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Contains(t, failed[0].ErrorMessage, "failed to enqueue")

		job, err := f.service.QueueSyncJob(ctx, productRequest("p1"))
		require.NoError(t, err)
		assert.Equal(t, syncjob.JobStatusQueued, job.Status)
	})

	t.Run("should reject a request without a source document", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.QueueSyncJob(ctx, Request{JobType: syncjob.JobTypeCommerceToContent})

		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}
