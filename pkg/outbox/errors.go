package outbox

import (
	"errors"
	"fmt"
)

var (
	// ErrEventNotFound is returned when an event id does not exist in the store.
	ErrEventNotFound = errors.New("outbox event not found")

	// ErrInvalidEvent is returned when an appended event misses required fields.
	ErrInvalidEvent = errors.New("invalid outbox event")

	// ErrInvalidArgument is returned for rejected operation arguments
	// (empty id lists, non-positive retention windows). These are never
	// retried automatically.
	ErrInvalidArgument = errors.New("invalid argument")
)

func errEventField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidEvent, field)
}
