// File: internal/infra/web/mocks_test.go
package web

import (
	"context"
	"encoding/json"
	"time"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/usecase"
)

// stubDocUC answers from fixed fields; handler tests only exercise mapping,
// not business rules.
type stubDocUC struct {
	job      *model.GenerationJob
	doc      *model.Document
	err      error
	resetIDs []string
	saved    []model.Document
}

var _ usecase.DocumentUseCase = (*stubDocUC)(nil)

func (s *stubDocUC) Enqueue(_ context.Context, sessionID, drugName string, drugData json.RawMessage) (*model.GenerationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sessionID == "" || drugName == "" {
		return nil, domain.ErrInvalidArgument
	}
	job := *s.job
	job.SessionID = sessionID
	job.DrugName = drugName
	job.DrugData = drugData
	return &job, nil
}

func (s *stubDocUC) Status(_ context.Context, jobID string) (*model.GenerationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.job == nil || s.job.ID != jobID {
		return nil, domain.ErrNotFound
	}
	return s.job, nil
}

func (s *stubDocUC) StatusBySession(context.Context, string) (*model.GenerationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.job, nil
}

func (s *stubDocUC) AwaitCompletion(_ context.Context, jobID string) (*model.GenerationJob, error) {
	return s.Status(context.Background(), jobID)
}

func (s *stubDocUC) Retry(_ context.Context, jobID string) (*model.GenerationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	job := *s.job
	job.ID = jobID
	job.Status = model.GenerationJobStatusPending
	job.Attempts = 0
	return &job, nil
}

func (s *stubDocUC) ForceReset(_ context.Context, jobID string) error {
	if s.err != nil {
		return s.err
	}
	s.resetIDs = append(s.resetIDs, jobID)
	return nil
}

func (s *stubDocUC) GetDocument(context.Context, string) (*model.Document, error) {
	if s.doc == nil {
		return nil, domain.ErrNotFound
	}
	return s.doc, nil
}

func (s *stubDocUC) SaveDocument(_ context.Context, sessionID, drugName, content string) error {
	if content == "" {
		return domain.ErrInvalidArgument
	}
	s.saved = append(s.saved, model.Document{SessionID: sessionID, DrugName: drugName, Content: content})
	return nil
}

type stubChatUC struct {
	reply  string
	intent usecase.Intent
	err    error
}

var _ usecase.ChatUseCase = (*stubChatUC)(nil)

func (s *stubChatUC) Send(_ context.Context, sessionID string, assistant model.AssistantType, text string) (string, usecase.Intent, error) {
	if s.err != nil {
		return "", "", s.err
	}
	if sessionID == "" || text == "" || !assistant.Valid() {
		return "", "", domain.ErrInvalidArgument
	}
	return s.reply, s.intent, nil
}

func (s *stubChatUC) History(_ context.Context, sessionID string, assistant model.AssistantType) (*model.Conversation, error) {
	return &model.Conversation{SessionID: sessionID, Assistant: assistant}, nil
}

type stubRunner struct {
	worked bool
	err    error
	calls  int
}

func (s *stubRunner) RunOnce(context.Context) (bool, error) {
	s.calls++
	return s.worked, s.err
}

type stubSweeper struct {
	n   int
	err error
}

func (s *stubSweeper) Sweep(context.Context) (int, error) { return s.n, s.err }

func sampleJob() *model.GenerationJob {
	now := time.Now()
	return &model.GenerationJob{
		ID:        "job-1",
		SessionID: "s1",
		DrugName:  "Amoxicillin",
		Status:    model.GenerationJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
