package ai

import (
	"context"
	"errors"
	"fmt"
)

// BackendError wraps a failed call against an LLM backend. Status carries the
// HTTP status when one exists; 0 means a transport-level failure.
type BackendError struct {
	Backend string
	Status  int
	Err     error
}

func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Backend, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying: network errors,
// rate limits and upstream 5xx. Client errors (4xx) are not.
func (e *BackendError) Transient() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}

// IsTransient classifies an error for the retry wrapper. Context
// cancellation and deadline expiry are never transient: the caller's budget
// is spent.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient()
	}
	return false
}
