// File: internal/infra/worker/mocks_test.go
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/adapter"
	"drug-shortage-assistant/internal/domain/ports/repository"
)

// memJobRepo is an in-memory job store with the same conditional-claim
// semantics as the Postgres implementation.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.GenerationJob
}

var _ repository.GenerationJobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*model.GenerationJob)}
}

func (m *memJobRepo) Enqueue(_ context.Context, _ repository.Tx, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	job.Status = model.GenerationJobStatusPending
	job.Attempts = 0
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobRepo) ClaimNext(_ context.Context, workerID string, staleAfter time.Duration) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-staleAfter)

	var best *model.GenerationJob
	for _, j := range m.jobs {
		eligible := j.Status == model.GenerationJobStatusPending ||
			(j.Status == model.GenerationJobStatusProcessing && j.UpdatedAt.Before(cutoff))
		if !eligible {
			continue
		}
		if best == nil || j.CreatedAt.Before(best.CreatedAt) {
			best = j
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}

	best.Status = model.GenerationJobStatusProcessing
	best.ClaimToken = ulid.Make().String()
	best.ClaimedBy = workerID
	best.UpdatedAt = time.Now()
	cp := *best
	return &cp, nil
}

func (m *memJobRepo) Complete(_ context.Context, id, claimToken, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != model.GenerationJobStatusProcessing || j.ClaimToken != claimToken {
		return domain.ErrJobNotClaimed
	}
	j.Status = model.GenerationJobStatusCompleted
	j.Result = result
	j.LastError = ""
	j.ClaimToken = ""
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) FailOrRetry(_ context.Context, id, claimToken, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if j.Status != model.GenerationJobStatusProcessing || j.ClaimToken != claimToken {
		return false, domain.ErrJobNotClaimed
	}
	j.Attempts++
	j.LastError = errMsg
	j.ClaimToken = ""
	j.UpdatedAt = time.Now()
	if j.Attempts >= model.MaxJobAttempts {
		j.Status = model.GenerationJobStatusFailed
		return true, nil
	}
	j.Status = model.GenerationJobStatusPending
	return false, nil
}

func (m *memJobRepo) Reset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status == model.GenerationJobStatusCompleted {
		return domain.ErrNotFound
	}
	j.Status = model.GenerationJobStatusPending
	j.ClaimToken = ""
	j.ClaimedBy = ""
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) ResetAllStale(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	n := 0
	for _, j := range m.jobs {
		if j.Status == model.GenerationJobStatusProcessing && j.UpdatedAt.Before(cutoff) {
			j.Status = model.GenerationJobStatusPending
			j.ClaimToken = ""
			j.ClaimedBy = ""
			j.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) Requeue(_ context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.Status != model.GenerationJobStatusFailed {
		return nil, domain.ErrJobNotRetryable
	}
	j.Status = model.GenerationJobStatusPending
	j.Attempts = 0
	j.LastError = ""
	j.Result = ""
	j.ClaimToken = ""
	j.ClaimedBy = ""
	j.UpdatedAt = time.Now()
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) Find(_ context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindBySession(_ context.Context, sessionID string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.GenerationJob
	for _, j := range m.jobs {
		if j.SessionID != sessionID {
			continue
		}
		if best == nil || j.CreatedAt.After(best.CreatedAt) {
			best = j
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

// setProcessing backdates a job into a stale processing state.
func (m *memJobRepo) setProcessing(id string, updatedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = model.GenerationJobStatusProcessing
	j.ClaimToken = ulid.Make().String()
	j.UpdatedAt = updatedAt
}

// memDocRepo stores one document per session.
type memDocRepo struct {
	mu      sync.Mutex
	docs    map[string]*model.Document
	saveErr error
}

var _ repository.DocumentRepository = (*memDocRepo)(nil)

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: make(map[string]*model.Document)}
}

func (m *memDocRepo) Save(_ context.Context, _ repository.Tx, doc *model.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.UpdatedAt = time.Now()
	cp := *doc
	m.docs[doc.SessionID] = &cp
	return nil
}

func (m *memDocRepo) FindBySession(_ context.Context, sessionID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// scriptedGen returns canned results (or errors) in order, then repeats the
// last entry.
type scriptedGen struct {
	mu      sync.Mutex
	results []genResult
	calls   int
}

type genResult struct {
	text string
	err  error
}

var _ adapter.TextGenerator = (*scriptedGen)(nil)

func (g *scriptedGen) Name() string { return "scripted" }

func (g *scriptedGen) Generate(ctx context.Context, _ []adapter.Message, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	r := g.results[i]
	return r.text, r.err
}

func (g *scriptedGen) CountTokens(context.Context, []adapter.Message) (int, error) { return 0, nil }

func (g *scriptedGen) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// blockingGen never returns until the context expires.
type blockingGen struct{}

var _ adapter.TextGenerator = (*blockingGen)(nil)

func (blockingGen) Name() string { return "blocking" }

func (blockingGen) Generate(ctx context.Context, _ []adapter.Message, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingGen) CountTokens(context.Context, []adapter.Message) (int, error) { return 0, nil }
