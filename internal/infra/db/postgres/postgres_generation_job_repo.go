package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*generationJobRepo)(nil)

type generationJobRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationJobRepo(pool *pgxpool.Pool) *generationJobRepo {
	return &generationJobRepo{pool: pool}
}

const jobColumns = `id, session_id, drug_name, drug_data, status, attempts, claim_token, claimed_by, last_error, result, created_at, updated_at`

func scanJob(row pgx.Row) (*model.GenerationJob, error) {
	var j model.GenerationJob
	var statusStr string
	var drugData []byte
	err := row.Scan(
		&j.ID, &j.SessionID, &j.DrugName, &drugData, &statusStr, &j.Attempts,
		&j.ClaimToken, &j.ClaimedBy, &j.LastError, &j.Result, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Status = model.GenerationJobStatus(statusStr)
	j.DrugData = drugData
	return &j, nil
}

func (r *generationJobRepo) Enqueue(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	job.Status = model.GenerationJobStatusPending
	job.Attempts = 0

	const q = `
INSERT INTO generation_jobs (id, session_id, drug_name, drug_data, status, attempts, claim_token, claimed_by, last_error, result, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, '', '', '', '', $7, $8);`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.SessionID, job.DrugName, []byte(job.DrugData), string(job.Status), job.Attempts, job.CreatedAt, job.UpdatedAt)
	// The partial unique index on active sessions turns a concurrent
	// double-enqueue into a unique violation for the loser.
	return mapUniqueViolation(err)
}

// mapUniqueViolation converts a violation of the active-session unique index
// into domain.ErrAlreadyExists; any other error passes through.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

// ClaimNext takes the oldest eligible job in one conditional UPDATE. The inner
// SELECT ... FOR UPDATE SKIP LOCKED keeps concurrent workers off the same row;
// there is no separate read-then-write window.
func (r *generationJobRepo) ClaimNext(ctx context.Context, workerID string, staleAfter time.Duration) (*model.GenerationJob, error) {
	token := ulid.Make().String()
	cutoff := time.Now().Add(-staleAfter)

	const q = `
UPDATE generation_jobs SET
  status = 'processing',
  claim_token = $1,
  claimed_by = $2,
  updated_at = now()
WHERE id = (
  SELECT id FROM generation_jobs
  WHERE status = 'pending'
     OR (status = 'processing' AND updated_at < $3)
  ORDER BY created_at
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns + `;`

	row, err := queryRow(ctx, r.pool, nil, q, token, workerID, cutoff)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *generationJobRepo) Complete(ctx context.Context, id, claimToken, result string) error {
	const q = `
UPDATE generation_jobs SET
  status = 'completed',
  result = $3,
  last_error = '',
  claim_token = '',
  updated_at = now()
WHERE id = $1 AND status = 'processing' AND claim_token = $2;`

	tag, err := execSQL(ctx, r.pool, nil, q, id, claimToken, result)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.claimLostError(ctx, id)
	}
	return nil
}

func (r *generationJobRepo) FailOrRetry(ctx context.Context, id, claimToken, errMsg string) (bool, error) {
	const q = `
UPDATE generation_jobs SET
  attempts = attempts + 1,
  last_error = $3,
  claim_token = '',
  status = CASE WHEN attempts + 1 >= $4 THEN 'failed' ELSE 'pending' END,
  updated_at = now()
WHERE id = $1 AND status = 'processing' AND claim_token = $2
RETURNING status;`

	row, err := queryRow(ctx, r.pool, nil, q, id, claimToken, errMsg, model.MaxJobAttempts)
	if err != nil {
		return false, err
	}
	var statusStr string
	if err := row.Scan(&statusStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, r.claimLostError(ctx, id)
		}
		return false, domain.ErrReadDatabaseRow
	}
	return model.GenerationJobStatus(statusStr) == model.GenerationJobStatusFailed, nil
}

// claimLostError reports why a lease-conditioned update touched no rows.
func (r *generationJobRepo) claimLostError(ctx context.Context, id string) error {
	if _, err := r.Find(ctx, id); errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return domain.ErrJobNotClaimed
}

func (r *generationJobRepo) Reset(ctx context.Context, id string) error {
	const q = `
UPDATE generation_jobs SET
  status = 'pending',
  claim_token = '',
  claimed_by = '',
  updated_at = now()
WHERE id = $1 AND status <> 'completed';`

	tag, err := execSQL(ctx, r.pool, nil, q, id)
	if err != nil {
		// Resetting a failed row collides with the active-session index
		// when the session already has a newer job in flight.
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *generationJobRepo) ResetAllStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	const q = `
UPDATE generation_jobs SET
  status = 'pending',
  claim_token = '',
  claimed_by = '',
  updated_at = now()
WHERE status = 'processing' AND updated_at < $1;`

	tag, err := execSQL(ctx, r.pool, nil, q, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *generationJobRepo) Requeue(ctx context.Context, id string) (*model.GenerationJob, error) {
	const q = `
UPDATE generation_jobs SET
  status = 'pending',
  attempts = 0,
  last_error = '',
  result = '',
  claim_token = '',
  claimed_by = '',
  updated_at = now()
WHERE id = $1 AND status = 'failed'
RETURNING ` + jobColumns + `;`

	row, err := queryRow(ctx, r.pool, nil, q, id)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		if _, ferr := r.Find(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, domain.ErrJobNotRetryable
	}
	return job, mapUniqueViolation(err)
}

func (r *generationJobRepo) Find(ctx context.Context, id string) (*model.GenerationJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1;`
	row, err := queryRow(ctx, r.pool, nil, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *generationJobRepo) FindBySession(ctx context.Context, sessionID string) (*model.GenerationJob, error) {
	const q = `
SELECT ` + jobColumns + ` FROM generation_jobs
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT 1;`
	row, err := queryRow(ctx, r.pool, nil, q, sessionID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}
