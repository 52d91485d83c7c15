package syncer

import "github.com/Sokol111/ecommerce-sync/pkg/syncjob"

// TaskKindSyncJob is the durable-queue kind carrying sync jobs.
const TaskKindSyncJob = "sync-job"

// Target system names written into job records.
const (
	SystemCommerce = "commerce"
	SystemContent  = "content"
)

// Request asks the orchestrator to synchronize one source document.
type Request struct {
	TenantID string
	StoreID  string

	JobType          syncjob.JobType
	SourceCollection string
	SourceDocID      string
	TargetSystem     string

	Metadata map[string]any
}

// Action tells what an upsert did to the target record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Result is the outcome of one directional mapping run.
type Result struct {
	Action Action
	ID     string
}

// Linkage fields the orchestrator owns on both systems' records.
// Everything else belongs to the system's own schema.
const (
	FieldCommerceSyncID = "commerceSyncId"
	FieldContentSyncID  = "contentSyncId"
	FieldLastSyncAt     = "lastSyncAt"
	FieldSyncStatus     = "syncStatus"
)

// SyncStatusSynced is stamped on every successfully upserted record.
const SyncStatusSynced = "synced"
