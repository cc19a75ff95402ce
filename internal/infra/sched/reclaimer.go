package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"drug-shortage-assistant/internal/domain/ports/repository"
	"drug-shortage-assistant/internal/infra/metrics"
)

// Reclaimer periodically returns stale processing jobs to pending. It is the
// crash-recovery path for worker invocations killed mid-flight: their claim
// token is cleared on reclaim, so a zombie worker cannot finish the job late.
// Attempts is preserved across reclaims; a crash does not refresh the retry
// budget.
type Reclaimer struct {
	interval   time.Duration
	staleAfter time.Duration
	jobs       repository.GenerationJobRepository
	log        *zerolog.Logger
}

func NewReclaimer(interval, staleAfter time.Duration, jobs repository.GenerationJobRepository, logger *zerolog.Logger) *Reclaimer {
	l := logger.With().Str("component", "Reclaimer").Logger()
	return &Reclaimer{
		interval:   interval,
		staleAfter: staleAfter,
		jobs:       jobs,
		log:        &l,
	}
}

func (w *Reclaimer) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("starting stale-job reclaimer")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping stale-job reclaimer")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.Sweep(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("reclaim sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stale jobs returned to pending")
			}
		}
	}
}

// Sweep runs one reclaim pass and reports how many jobs were reset.
func (w *Reclaimer) Sweep(ctx context.Context) (int, error) {
	n, err := w.jobs.ResetAllStale(ctx, w.staleAfter)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddJobsReclaimed(n)
	}
	return n, nil
}
