package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound is returned when a system has no record with
	// the requested id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidRequest is returned when a sync request misses required
	// fields. Never retried.
	ErrInvalidRequest = errors.New("invalid sync request")

	// ErrMissingSourceData is returned when a commerce-originated job
	// arrives without its entity snapshot. The worker never re-fetches
	// from the commerce engine, so this is fatal for the job.
	ErrMissingSourceData = errors.New("job metadata carries no source data snapshot")
)

func errUnknownCollection(jobType, collection string) error {
	return fmt.Errorf("no %s mapping for collection %q", jobType, collection)
}

func errUnknownEntity(entity string) error {
	return fmt.Errorf("no reconciliation routine for entity %q", entity)
}
