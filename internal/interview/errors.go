package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown session identifiers.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCompleted is returned when a mutation targets a session
	// that has already been finalized.
	ErrSessionCompleted = errors.New("session already completed")
)

// ValidationError describes a malformed client payload. It is never retried
// and its reason is safe to surface verbatim to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %s", e.Reason)
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
