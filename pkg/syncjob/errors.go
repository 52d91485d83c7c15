package syncjob

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id or lookup has no match.
	ErrJobNotFound = errors.New("sync job not found")

	// ErrInvalidJob is returned when a created job misses required fields.
	ErrInvalidJob = errors.New("invalid sync job")
)

func errJobField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidJob, field)
}

func errInvalidJobType(jobType JobType) error {
	return fmt.Errorf("%w: unknown job type %q", ErrInvalidJob, jobType)
}
