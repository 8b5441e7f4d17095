package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no session exists for the requested id,
// or when a required file (source document, output artifact) is gone.
var ErrNotFound = errors.New("session not found")

// ValidationError rejects a bad upload at the boundary; no session is
// created for it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InvalidTransitionError reports an operation that is not allowed in
// the session's current status.
type InvalidTransitionError struct {
	Op     string
	Status Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s session in %s status", e.Op, e.Status)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
