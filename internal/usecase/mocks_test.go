// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/adapter"
	"drug-shortage-assistant/internal/domain/ports/repository"
)

type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.GenerationJob

	// raceWinner, when set, makes the next Enqueue behave as if a
	// concurrent insert for the same session beat it to the unique
	// index: the winner lands in the store and the call reports
	// domain.ErrAlreadyExists.
	raceWinner *model.GenerationJob
}

var _ repository.GenerationJobRepository = (*mockJobRepo)(nil)

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.GenerationJob)}
}

func (m *mockJobRepo) Enqueue(_ context.Context, _ repository.Tx, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w := m.raceWinner; w != nil {
		m.raceWinner = nil
		w.Status = model.GenerationJobStatusPending
		w.CreatedAt = time.Now()
		w.UpdatedAt = w.CreatedAt
		m.jobs[w.ID] = w
		return domain.ErrAlreadyExists
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = model.GenerationJobStatusPending
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) ClaimNext(_ context.Context, workerID string, staleAfter time.Duration) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-staleAfter)
	for _, j := range m.jobs {
		if j.Status == model.GenerationJobStatusPending ||
			(j.Status == model.GenerationJobStatusProcessing && j.UpdatedAt.Before(cutoff)) {
			j.Status = model.GenerationJobStatusProcessing
			j.ClaimToken = ulid.Make().String()
			j.ClaimedBy = workerID
			j.UpdatedAt = time.Now()
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockJobRepo) Complete(_ context.Context, id, claimToken, result string) error {
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
	j.ClaimToken = ""
	j.UpdatedAt = time.Now()
	return nil
}

func (m *mockJobRepo) FailOrRetry(_ context.Context, id, claimToken, errMsg string) (bool, error) {
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

func (m *mockJobRepo) Reset(_ context.Context, id string) error {
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

func (m *mockJobRepo) ResetAllStale(_ context.Context, olderThan time.Duration) (int, error) {
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

func (m *mockJobRepo) Requeue(_ context.Context, id string) (*model.GenerationJob, error) {
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
	j.UpdatedAt = time.Now()
	cp := *j
	return &cp, nil
}

func (m *mockJobRepo) Find(_ context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobRepo) FindBySession(_ context.Context, sessionID string) (*model.GenerationJob, error) {
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

// setStatus mutates a stored job directly, bypassing claim checks.
func (m *mockJobRepo) setStatus(id string, st model.GenerationJobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = st
	m.jobs[id].UpdatedAt = time.Now()
}

type mockDocRepo struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

var _ repository.DocumentRepository = (*mockDocRepo)(nil)

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{docs: make(map[string]*model.Document)}
}

func (m *mockDocRepo) Save(_ context.Context, _ repository.Tx, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.UpdatedAt = time.Now()
	cp := *doc
	m.docs[doc.SessionID] = &cp
	return nil
}

func (m *mockDocRepo) FindBySession(_ context.Context, sessionID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

type mockConvRepo struct {
	mu       sync.Mutex
	messages []model.ChatMessage
}

var _ repository.ConversationRepository = (*mockConvRepo)(nil)

func (m *mockConvRepo) Load(_ context.Context, sessionID string, assistant model.AssistantType) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := &model.Conversation{SessionID: sessionID, Assistant: assistant}
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.Assistant == assistant {
			conv.Messages = append(conv.Messages, msg)
		}
	}
	return conv, nil
}

func (m *mockConvRepo) AppendMessage(_ context.Context, _ repository.Tx, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return nil
}

// fakeGenerator replays canned replies and records every prompt it was given.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

var _ adapter.TextGenerator = (*fakeGenerator)(nil)

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, _ []adapter.Message, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) CountTokens(context.Context, []adapter.Message) (int, error) {
	return 42, nil
}

// mockTxManager runs the callback without a real transaction; repositories
// accept a nil handle.
type mockTxManager struct{}

var _ repository.TransactionManager = mockTxManager{}

func (mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type mockTrigger struct {
	mu    sync.Mutex
	wakes int
}

var _ adapter.WorkerTrigger = (*mockTrigger)(nil)

func (t *mockTrigger) Wake(context.Context) {
	t.mu.Lock()
	t.wakes++
	t.mu.Unlock()
}

func (t *mockTrigger) wakeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wakes
}

type mockStatusReader struct {
	mu       sync.Mutex
	statuses map[string]model.GenerationJobStatus
}

func newMockStatusReader() *mockStatusReader {
	return &mockStatusReader{statuses: make(map[string]model.GenerationJobStatus)}
}

func (m *mockStatusReader) set(jobID string, st model.GenerationJobStatus) {
	m.mu.Lock()
	m.statuses[jobID] = st
	m.mu.Unlock()
}

func (m *mockStatusReader) GetStatus(_ context.Context, jobID string) (model.GenerationJobStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[jobID]
	return st, ok
}
