package syncjob

import (
	"time"

	"github.com/google/uuid"
)

// JobType routes a sync job to its directional pipeline.
type JobType string

const (
	JobTypeContentToCommerce JobType = "content_to_commerce"
	JobTypeCommerceToContent JobType = "commerce_to_content"
	JobTypeReconcile         JobType = "reconcile"
)

// JobStatus is the lifecycle state of a sync job. Transitions are owned
// exclusively by the worker executing the job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// IsActive reports whether the job still occupies its
// (sourceCollection, sourceDocId) slot.
func (s JobStatus) IsActive() bool {
	return s == JobStatusQueued || s == JobStatusRunning
}

// MetadataSourceData is the metadata key carrying the fully-resolved
// source entity snapshot for commerce->content jobs. The worker never
// re-fetches from the commerce engine.
const MetadataSourceData = "sourceData"

// MetadataEntity is the metadata key naming the entity kind of a
// reconciliation job.
const MetadataEntity = "entity"

// LogEntry is one line of a job's append-only execution log.
type LogEntry struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Level     string    `bson:"level" json:"level"`
	Message   string    `bson:"message" json:"message"`
}

// Job is the durable record of one cross-system synchronization attempt:
// the audit trail and retry driver of the orchestrator.
type Job struct {
	ID       string `bson:"_id"`
	TenantID string `bson:"tenantId,omitempty"`
	StoreID  string `bson:"storeId,omitempty"`

	JobType          JobType `bson:"jobType"`
	SourceCollection string  `bson:"sourceCollection"`
	SourceDocID      string  `bson:"sourceDocId"`
	TargetSystem     string  `bson:"targetSystem,omitempty"`
	TargetID         string  `bson:"targetId,omitempty"`

	Metadata map[string]any `bson:"metadata,omitempty"`

	Status       JobStatus  `bson:"status"`
	StartedAt    *time.Time `bson:"startedAt,omitempty"`
	FinishedAt   *time.Time `bson:"finishedAt,omitempty"`
	ErrorMessage string     `bson:"errorMessage,omitempty"`
	Logs         []LogEntry `bson:"logs,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
}

func (j *Job) normalize(now time.Time) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Status = JobStatusQueued
	j.StartedAt = nil
	j.FinishedAt = nil
	j.ErrorMessage = ""
	j.CreatedAt = now
}
