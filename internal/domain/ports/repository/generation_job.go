package repository

import (
	"context"
	"time"

	"drug-shortage-assistant/internal/domain/model"
)

// GenerationJobRepository is the job store for the document-generation
// pipeline. All cross-worker coordination lives in ClaimNext's conditional
// update; nothing else may move a job into processing.
type GenerationJobRepository interface {
	// Enqueue inserts a new job with status=pending and attempts=0.
	Enqueue(ctx context.Context, tx Tx, job *model.GenerationJob) error

	// ClaimNext atomically takes ownership of the oldest eligible job:
	// pending, or processing with updated_at older than staleAfter. The
	// returned job carries a fresh claim token stamped with workerID.
	// Returns domain.ErrNotFound when no job is eligible.
	ClaimNext(ctx context.Context, workerID string, staleAfter time.Duration) (*model.GenerationJob, error)

	// Complete finishes a job the caller still holds: status=completed,
	// result set, last_error and claim token cleared. Returns
	// domain.ErrJobNotClaimed when the claim token no longer matches.
	Complete(ctx context.Context, id, claimToken, result string) error

	// FailOrRetry records a failed attempt under the caller's claim.
	// Attempts is incremented; at the cap the job becomes failed, otherwise
	// it returns to pending. Reports whether the failure was terminal.
	FailOrRetry(ctx context.Context, id, claimToken, errMsg string) (failed bool, err error)

	// Reset forces a single job back to pending, clearing any claim.
	// Attempts is preserved.
	Reset(ctx context.Context, id string) error

	// ResetAllStale returns every processing job older than olderThan to
	// pending, clearing claims and preserving attempts. Reports how many
	// rows were reclaimed.
	ResetAllStale(ctx context.Context, olderThan time.Duration) (int, error)

	// Requeue puts a terminally failed job back in the queue with a fresh
	// attempt budget. Returns domain.ErrJobNotRetryable unless the job is
	// failed.
	Requeue(ctx context.Context, id string) (*model.GenerationJob, error)

	Find(ctx context.Context, id string) (*model.GenerationJob, error)

	// FindBySession returns the most recent job for a session, or
	// domain.ErrNotFound.
	FindBySession(ctx context.Context, sessionID string) (*model.GenerationJob, error)
}
