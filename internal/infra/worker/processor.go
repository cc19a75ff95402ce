package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"drug-shortage-assistant/internal/docgen"
	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/adapter"
	"drug-shortage-assistant/internal/domain/ports/repository"
	"drug-shortage-assistant/internal/infra/metrics"
)

// statusPublisher receives job status transitions (Redis-backed in prod).
// Publishing is best-effort and never fails a job.
type statusPublisher interface {
	Store(ctx context.Context, job *model.GenerationJob) error
}

// Processor drains generation jobs: claim, prompt, generate, validate,
// persist. One job per RunOnce call, so an external trigger gets the same
// semantics as the in-process loop.
type Processor struct {
	jobs       repository.GenerationJobRepository
	docs       repository.DocumentRepository
	gen        adapter.TextGenerator
	status     statusPublisher
	workerID   string
	staleAfter time.Duration
	docTimeout time.Duration
	log        *zerolog.Logger
}

func NewProcessor(
	jobs repository.GenerationJobRepository,
	docs repository.DocumentRepository,
	gen adapter.TextGenerator,
	status statusPublisher,
	staleAfter, docTimeout time.Duration,
	logger *zerolog.Logger,
) *Processor {
	workerID := ulid.Make().String()
	l := logger.With().Str("component", "Processor").Str("worker_id", workerID).Logger()
	return &Processor{
		jobs:       jobs,
		docs:       docs,
		gen:        gen,
		status:     status,
		workerID:   workerID,
		staleAfter: staleAfter,
		docTimeout: docTimeout,
		log:        &l,
	}
}

// Run polls for jobs until the context is cancelled, submitting each pass to
// the pool. This should be run in a goroutine.
func (p *Processor) Run(ctx context.Context, pool *Pool, pollInterval time.Duration) {
	p.log.Info().Dur("poll_interval", pollInterval).Msg("job processor started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				_, err := p.RunOnce(ctx)
				return err
			})
		}
	}
}

// RunOnce claims and processes at most one job. It reports whether a job was
// worked. No error escapes without the job row first being moved to a
// retryable or terminal state; an orphaned processing row would otherwise be
// invisible until the reclaimer sweeps it.
func (p *Processor) RunOnce(ctx context.Context) (worked bool, err error) {
	job, err := p.jobs.ClaimNext(ctx, p.workerID, p.staleAfter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil // idle, not an error
		}
		return false, fmt.Errorf("claim next: %w", err)
	}

	log := p.log.With().Str("job_id", job.ID).Str("session_id", job.SessionID).Logger()
	log.Info().Str("drug", job.DrugName).Int("attempts", job.Attempts).Msg("processing job")
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("job processing panicked")
			p.fail(job, fmt.Sprintf("internal error: %v", r))
			worked, err = true, nil
		}
		metrics.ObserveJobDuration(time.Since(start).Seconds())
	}()

	result, genErr := p.generate(ctx, job)
	if genErr != nil {
		log.Warn().Err(genErr).Msg("generation failed")
		p.fail(job, genErr.Error())
		return true, nil
	}

	// Persist the document first; if that write is lost the job must come
	// back because the generated content is gone with it.
	doc := &model.Document{SessionID: job.SessionID, DrugName: job.DrugName, Content: result}
	if saveErr := p.docs.Save(ctx, nil, doc); saveErr != nil {
		log.Error().Err(saveErr).Msg("document save failed")
		p.fail(job, fmt.Sprintf("save document: %v", saveErr))
		return true, nil
	}

	if compErr := p.jobs.Complete(context.Background(), job.ID, job.ClaimToken, result); compErr != nil {
		if errors.Is(compErr, domain.ErrJobNotClaimed) {
			// The reclaimer took the job back mid-flight; another worker
			// owns it now. Our completion is discarded.
			log.Warn().Msg("claim superseded, discarding late completion")
			return true, nil
		}
		log.Error().Err(compErr).Msg("complete failed")
		return true, compErr
	}

	job.Status = model.GenerationJobStatusCompleted
	job.Result = result
	job.LastError = ""
	p.publish(job)
	metrics.IncJobProcessed("completed")
	log.Info().Dur("duration", time.Since(start)).Msg("job completed")
	return true, nil
}

// generate runs the bounded LLM call and structural validation, with one
// corrective retry when the output looks truncated.
func (p *Processor) generate(ctx context.Context, job *model.GenerationJob) (string, error) {
	history := []adapter.Message{{Role: "system", Content: docgen.SystemPrompt}}
	prompt := docgen.BuildDocumentPrompt(job.DrugName, job.DrugData)

	callCtx, cancel := context.WithTimeout(ctx, p.docTimeout)
	defer cancel()

	callStart := time.Now()
	out, err := p.gen.Generate(callCtx, history, prompt)
	metrics.ObserveAICall(p.gen.Name(), "document", int(time.Since(callStart).Milliseconds()), err == nil)
	if err != nil {
		return "", err
	}

	if vErr := docgen.ValidateDocument(out); vErr != nil {
		if !docgen.LooksTruncated(out) {
			return "", fmt.Errorf("%w: %v", domain.ErrMalformedDocument, vErr)
		}
		metrics.IncValidationRetry()
		p.log.Warn().Str("job_id", job.ID).Msg("output truncated, issuing corrective retry")

		retryCtx, cancelRetry := context.WithTimeout(ctx, p.docTimeout)
		defer cancelRetry()
		out, err = p.gen.Generate(retryCtx, history, docgen.BuildCorrectivePrompt(job.DrugName))
		if err != nil {
			return "", err
		}
		if vErr := docgen.ValidateDocument(out); vErr != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrMalformedDocument, vErr)
		}
	}
	return out, nil
}

// fail records an attempt under the job's claim. The background context keeps
// the row update alive even when the invocation's own context is gone.
func (p *Processor) fail(job *model.GenerationJob, msg string) {
	failed, err := p.jobs.FailOrRetry(context.Background(), job.ID, job.ClaimToken, msg)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotClaimed) {
			p.log.Warn().Str("job_id", job.ID).Msg("claim superseded, discarding failure record")
			return
		}
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to record job failure")
		return
	}

	job.Attempts++
	job.LastError = msg
	job.ClaimToken = ""
	if failed {
		job.Status = model.GenerationJobStatusFailed
		metrics.IncJobProcessed("failed")
	} else {
		job.Status = model.GenerationJobStatusPending
		metrics.IncJobProcessed("retried")
	}
	p.publish(job)
}

func (p *Processor) publish(job *model.GenerationJob) {
	if p.status == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.status.Store(ctx, job); err != nil {
		p.log.Debug().Err(err).Str("job_id", job.ID).Msg("status publish failed")
	}
}
