// File: internal/usecase/document_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	adapterport "drug-shortage-assistant/internal/domain/ports/adapter"
	"drug-shortage-assistant/internal/domain/ports/repository"
	"drug-shortage-assistant/internal/infra/logging"
	"drug-shortage-assistant/internal/infra/metrics"
)

// Compile-time check
var _ DocumentUseCase = (*documentUC)(nil)

// statusReader is the cached fast path for the completion poller.
type statusReader interface {
	GetStatus(ctx context.Context, jobID string) (model.GenerationJobStatus, bool)
}

// staleCachePolls caps how many consecutive poll ticks a non-terminal cache
// hit may stand in for the authoritative job-store read.
const staleCachePolls = 4

type DocumentUseCase interface {
	// Enqueue creates a pending generation job for the session. While a job
	// for the session is still in flight the existing job is returned
	// instead of inserting a duplicate.
	Enqueue(ctx context.Context, sessionID, drugName string, drugData json.RawMessage) (*model.GenerationJob, error)
	Status(ctx context.Context, jobID string) (*model.GenerationJob, error)
	StatusBySession(ctx context.Context, sessionID string) (*model.GenerationJob, error)
	// AwaitCompletion polls until the job reaches a terminal state, the
	// wait budget runs out (domain.ErrAwaitTimeout), or ctx is cancelled.
	AwaitCompletion(ctx context.Context, jobID string) (*model.GenerationJob, error)
	// Retry re-enqueues a terminally failed job with a fresh attempt
	// budget. Unlike a stale reclaim this is an explicit operator decision.
	Retry(ctx context.Context, jobID string) (*model.GenerationJob, error)
	// ForceReset returns one job to pending regardless of claim state,
	// preserving its attempt count. Manual recovery only.
	ForceReset(ctx context.Context, jobID string) error
	GetDocument(ctx context.Context, sessionID string) (*model.Document, error)
	SaveDocument(ctx context.Context, sessionID, drugName, content string) error
}

type documentUC struct {
	jobs     repository.GenerationJobRepository
	docs     repository.DocumentRepository
	trigger  adapterport.WorkerTrigger
	status   statusReader
	pollTick time.Duration
	maxWait  time.Duration
	log      *zerolog.Logger
}

func NewDocumentUseCase(
	jobs repository.GenerationJobRepository,
	docs repository.DocumentRepository,
	trigger adapterport.WorkerTrigger,
	status statusReader,
	logger *zerolog.Logger,
) *documentUC {
	l := logger.With().Str("component", "DocumentUC").Logger()
	return &documentUC{
		jobs:     jobs,
		docs:     docs,
		trigger:  trigger,
		status:   status,
		pollTick: 5 * time.Second,
		maxWait:  5 * time.Minute,
		log:      &l,
	}
}

func (u *documentUC) Enqueue(ctx context.Context, sessionID, drugName string, drugData json.RawMessage) (*model.GenerationJob, error) {
	defer logging.TraceDuration(u.log, "DocumentUC.Enqueue")()

	sessionID = strings.TrimSpace(sessionID)
	drugName = strings.TrimSpace(drugName)
	if sessionID == "" || drugName == "" {
		return nil, domain.ErrInvalidArgument
	}

	if existing, err := u.jobs.FindBySession(ctx, sessionID); err == nil && !existing.Terminal() {
		return existing, nil
	}

	job := &model.GenerationJob{
		SessionID: sessionID,
		DrugName:  drugName,
		DrugData:  drugData,
	}
	if err := u.jobs.Enqueue(ctx, nil, job); err != nil {
		// A concurrent enqueue for the same session won the insert race;
		// return its job the same way the read-path dedupe would have.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.jobs.FindBySession(ctx, sessionID)
		}
		return nil, err
	}
	metrics.IncJobEnqueued()
	u.log.Info().Str("job_id", job.ID).Str("session_id", sessionID).Str("drug", drugName).Msg("job enqueued")

	// Best-effort wake; enqueue never fails on a trigger error.
	u.trigger.Wake(ctx)
	return job, nil
}

func (u *documentUC) Status(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	return u.jobs.Find(ctx, jobID)
}

func (u *documentUC) StatusBySession(ctx context.Context, sessionID string) (*model.GenerationJob, error) {
	return u.jobs.FindBySession(ctx, sessionID)
}

func (u *documentUC) AwaitCompletion(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	defer logging.TraceDuration(u.log, "DocumentUC.AwaitCompletion")()

	ctx = logging.WithJobID(ctx, jobID)
	deadline := time.Now().Add(u.maxWait)
	ticker := time.NewTicker(u.pollTick)
	defer ticker.Stop()

	skipped := 0
	for {
		// The cache is a hint, not the source of truth: status publishes
		// are best-effort, so a dropped completion publish can pin a stale
		// non-terminal entry for the full TTL. A non-terminal hit may defer
		// the store read for at most staleCachePolls consecutive ticks.
		readStore := true
		if u.status != nil && skipped < staleCachePolls {
			if st, ok := u.status.GetStatus(ctx, jobID); ok {
				readStore = st == model.GenerationJobStatusCompleted || st == model.GenerationJobStatusFailed
			}
		}
		if readStore {
			skipped = 0
			job, err := u.jobs.Find(ctx, jobID)
			if err != nil {
				return nil, err
			}
			if job.Terminal() {
				return job, nil
			}
		} else {
			skipped++
		}

		if time.Now().After(deadline) {
			return nil, domain.ErrAwaitTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (u *documentUC) Retry(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	job, err := u.jobs.Requeue(ctx, jobID)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", jobID).Msg("failed job re-enqueued")
	u.trigger.Wake(ctx)
	return job, nil
}

func (u *documentUC) ForceReset(ctx context.Context, jobID string) error {
	if err := u.jobs.Reset(ctx, jobID); err != nil {
		return err
	}
	u.log.Warn().Str("job_id", jobID).Msg("job force-reset to pending")
	return nil
}

func (u *documentUC) GetDocument(ctx context.Context, sessionID string) (*model.Document, error) {
	return u.docs.FindBySession(ctx, sessionID)
}

func (u *documentUC) SaveDocument(ctx context.Context, sessionID, drugName, content string) error {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(content) == "" {
		return domain.ErrInvalidArgument
	}
	doc := &model.Document{SessionID: sessionID, DrugName: drugName, Content: content}
	return u.docs.Save(ctx, nil, doc)
}

// SetPolling overrides the await cadence; used by tests and by deployments
// fronted by long-poll clients.
func (u *documentUC) SetPolling(tick, maxWait time.Duration) {
	if tick > 0 {
		u.pollTick = tick
	}
	if maxWait > 0 {
		u.maxWait = maxWait
	}
}
