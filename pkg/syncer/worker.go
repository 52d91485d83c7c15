package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-sync/pkg/core/logger"
	"github.com/Sokol111/ecommerce-sync/pkg/queue"
	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"go.uber.org/zap"
)

// Worker binds durable-queue tasks back to their SyncJob audit records
// and executes them through the router. Queue-level backoff drives
// re-attempts; each attempt runs against a fresh queued-job lookup, so
// failed attempts stay visible in history instead of being overwritten.
type Worker struct {
	jobs    syncjob.Store
	router  *Router
	content SystemClient
	log     *zap.Logger
}

func NewWorker(jobs syncjob.Store, router *Router, content SystemClient, log *zap.Logger) *Worker {
	return &Worker{
		jobs:    jobs,
		router:  router,
		content: content,
		log:     log.With(zap.String("component", "sync-worker")),
	}
}

// HandleTask is the queue.Handler for sync-job tasks.
func (w *Worker) HandleTask(ctx context.Context, task *queue.Task) error {
	collection := str(task.Payload["sourceCollection"])
	docID := str(task.Payload["sourceDocId"])
	if collection == "" || docID == "" {
		return fmt.Errorf("task %s carries no source document reference", task.ID)
	}

	// The queue pool scopes a logger to the task.
	log := logger.Get(ctx).With(
		zap.String("sourceCollection", collection),
		zap.String("sourceDocId", docID),
	)

	job, err := w.jobs.FindLatestQueued(ctx, collection, docID)
	if errors.Is(err, syncjob.ErrJobNotFound) {
		// Expected under races between enqueue and query, and after a
		// failed attempt already consumed the queued row.
		log.Info("no queued job for task, skipping as orphaned")
		return nil
	}
	if err != nil {
		return err
	}

	claimed, err := w.jobs.MarkRunning(ctx, job.ID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Info("job already claimed by another worker", zap.String("jobId", job.ID))
		return nil
	}

	log = log.With(zap.String("jobId", job.ID), zap.String("jobType", string(job.JobType)))
	w.appendLog(ctx, job.ID, "info", "sync started")

	result, err := w.execute(ctx, job)
	if err != nil {
		log.Warn("sync job failed", zap.Error(err))
		w.appendLog(ctx, job.ID, "error", err.Error())
		if completeErr := w.jobs.Complete(ctx, job.ID, syncjob.JobStatusFailed, err.Error()); completeErr != nil {
			log.Error("failed to record job failure", zap.Error(completeErr))
		}
		return err
	}

	if result.ID != "" {
		if err := w.jobs.SetTargetID(ctx, job.ID, result.ID); err != nil {
			log.Error("failed to record target id", zap.Error(err))
		}
	}
	w.appendLog(ctx, job.ID, "info", fmt.Sprintf("sync finished: %s %s", result.Action, result.ID))
	if err := w.jobs.Complete(ctx, job.ID, syncjob.JobStatusSuccess, ""); err != nil {
		return err
	}

	log.Info("sync job finished", zap.String("action", string(result.Action)), zap.String("targetId", result.ID))
	return nil
}

func (w *Worker) execute(ctx context.Context, job *syncjob.Job) (Result, error) {
	fn, err := w.router.Resolve(job)
	if err != nil {
		return Result{}, err
	}

	source, err := w.resolveSource(ctx, job)
	if err != nil {
		return Result{}, err
	}

	return fn(ctx, job, source)
}

// resolveSource produces the document handed to the mapping function.
// Content-originated jobs fetch the live document; commerce-originated
// jobs must already carry their snapshot; reconciliation jobs work off
// their own metadata.
func (w *Worker) resolveSource(ctx context.Context, job *syncjob.Job) (map[string]any, error) {
	switch job.JobType {
	case syncjob.JobTypeContentToCommerce:
		return w.content.FindByID(ctx, job.SourceCollection, job.SourceDocID)

	case syncjob.JobTypeCommerceToContent:
		// Jobs loaded from Mongo carry the snapshot as a decoded BSON
		// document, not the map it was enqueued as.
		snapshot, ok := normalizeDocument(job.Metadata[syncjob.MetadataSourceData])
		if !ok || len(snapshot) == 0 {
			return nil, fmt.Errorf("%w: job %s", ErrMissingSourceData, job.ID)
		}
		return snapshot, nil

	default:
		return job.Metadata, nil
	}
}

func (w *Worker) appendLog(ctx context.Context, jobID, level, message string) {
	if err := w.jobs.AppendLog(ctx, jobID, level, message); err != nil {
		w.log.Error("failed to append job log", zap.String("jobId", jobID), zap.Error(err))
	}
}
