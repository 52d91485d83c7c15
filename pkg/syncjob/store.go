package syncjob

import "context"

// Store persists sync jobs. Like the outbox, all mutation is single-row
// atomic status transitions.
type Store interface {
	// Create validates the job, stamps queued state and persists it.
	Create(ctx context.Context, job *Job) (*Job, error)

	// Get returns a job by id.
	Get(ctx context.Context, id string) (*Job, error)

	// FindLatestQueued returns the most recently created queued job for
	// one source document, binding a durable-queue message back to its
	// audit record. Returns ErrJobNotFound when there is none.
	FindLatestQueued(ctx context.Context, sourceCollection, sourceDocID string) (*Job, error)

	// FindActive returns the queued or running job occupying the
	// (sourceCollection, sourceDocId) slot, or ErrJobNotFound.
	FindActive(ctx context.Context, sourceCollection, sourceDocID string) (*Job, error)

	// MarkRunning atomically transitions queued -> running and stamps
	// startedAt. Reports false when the job is no longer queued.
	MarkRunning(ctx context.Context, id string) (bool, error)

	// AppendLog appends one entry to the job's ordered execution log.
	AppendLog(ctx context.Context, id string, level, message string) error

	// SetTargetID records the target-system id once it is known.
	SetTargetID(ctx context.Context, id, targetID string) error

	// Complete finishes the job with success or failed, stamping
	// finishedAt and the error message.
	Complete(ctx context.Context, id string, status JobStatus, errorMessage string) error

	// ListByStatus returns jobs in one status, newest first, optionally
	// filtered by tenant.
	ListByStatus(ctx context.Context, tenantID string, status JobStatus, limit int) ([]*Job, error)
}

func validateJob(j *Job) error {
	if j == nil {
		return ErrInvalidJob
	}
	switch j.JobType {
	case JobTypeContentToCommerce, JobTypeCommerceToContent, JobTypeReconcile:
	default:
		return errInvalidJobType(j.JobType)
	}
	if j.SourceCollection == "" {
		return errJobField("sourceCollection")
	}
	if j.SourceDocID == "" {
		return errJobField("sourceDocId")
	}
	return nil
}
