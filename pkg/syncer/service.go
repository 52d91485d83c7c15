package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-sync/pkg/queue"
	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
	"go.uber.org/zap"
)

// Service is the dispatch entry point of the orchestrator. Every sync
// request becomes a durable SyncJob row plus a queue task; requests for
// a document that already has a queued job coalesce onto it instead of
// stacking duplicates. A request is never silently dropped.
type Service struct {
	jobs  syncjob.Store
	queue queue.Queue
	log   *zap.Logger
	clock func() time.Time
}

func NewService(jobs syncjob.Store, q queue.Queue, log *zap.Logger) *Service {
	return &Service{
		jobs:  jobs,
		queue: q,
		log:   log.With(zap.String("component", "sync-service")),
		clock: time.Now,
	}
}

// QueueSyncJob persists a queued SyncJob for the request and enqueues
// the task driving it. When a queued job already occupies the
// (collection, docId) slot the request coalesces onto it: the pending
// run will pick up the document's latest state anyway.
func (s *Service) QueueSyncJob(ctx context.Context, req Request) (*syncjob.Job, error) {
	if req.SourceCollection == "" || req.SourceDocID == "" {
		return nil, fmt.Errorf("%w: source collection and document id are required", ErrInvalidRequest)
	}

	existing, err := s.jobs.FindLatestQueued(ctx, req.SourceCollection, req.SourceDocID)
	if err == nil {
		s.log.Debug("coalesced sync request onto queued job",
			zap.String("jobId", existing.ID),
			zap.String("sourceCollection", req.SourceCollection),
			zap.String("sourceDocId", req.SourceDocID),
		)
		return existing, nil
	}
	if !errors.Is(err, syncjob.ErrJobNotFound) {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, &syncjob.Job{
		TenantID:         req.TenantID,
		StoreID:          req.StoreID,
		JobType:          req.JobType,
		SourceCollection: req.SourceCollection,
		SourceDocID:      req.SourceDocID,
		TargetSystem:     req.TargetSystem,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	task := &queue.Task{
		Key:  fmt.Sprintf("%s/%s/%s/%d", req.JobType, req.SourceCollection, req.SourceDocID, s.clock().UTC().UnixNano()),
		Kind: TaskKindSyncJob,
		Payload: map[string]any{
			"sourceCollection": req.SourceCollection,
			"sourceDocId":      req.SourceDocID,
			"jobType":          string(req.JobType),
			"tenantId":         req.TenantID,
		},
	}
	if _, err := s.queue.Enqueue(ctx, task); err != nil {
		// Without a driving task a queued row would occupy the coalescing
		// slot forever and swallow every later request for this document.
		reason := fmt.Sprintf("failed to enqueue sync task: %v", err)
		if completeErr := s.jobs.Complete(ctx, job.ID, syncjob.JobStatusFailed, reason); completeErr != nil {
			s.log.Error("failed to fail job after enqueue error",
				zap.String("jobId", job.ID),
				zap.Error(completeErr),
			)
		}
		return nil, fmt.Errorf("failed to enqueue sync task for job %s: %w", job.ID, err)
	}

	s.log.Info("queued sync job",
		zap.String("jobId", job.ID),
		zap.String("jobType", string(req.JobType)),
		zap.String("sourceCollection", req.SourceCollection),
		zap.String("sourceDocId", req.SourceDocID),
	)
	return job, nil
}
