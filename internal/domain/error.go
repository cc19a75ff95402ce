package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrJobNotClaimed      = errors.New("job is not held by this claim")
	ErrJobNotRetryable    = errors.New("job is not in a retryable state")
	ErrEmptyCompletion    = errors.New("model returned an empty completion")
	ErrMalformedDocument  = errors.New("generated document failed validation")
	ErrAwaitTimeout       = errors.New("timed out waiting for job completion")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
