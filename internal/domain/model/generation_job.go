package model

import (
	"encoding/json"
	"time"
)

type GenerationJobStatus string

const (
	GenerationJobStatusPending    GenerationJobStatus = "pending"
	GenerationJobStatusProcessing GenerationJobStatus = "processing"
	GenerationJobStatusCompleted  GenerationJobStatus = "completed"
	GenerationJobStatusFailed     GenerationJobStatus = "failed"
)

// MaxJobAttempts is the retry budget for a generation job. Once Attempts
// reaches this cap the job is terminally failed and only an explicit
// operator retry re-enqueues it.
const MaxJobAttempts = 3

// GenerationJob is one request to generate a shortage-response document for
// one drug within one session.
//
// ClaimToken is the worker lease: it is set on claim, required on
// Complete/FailOrRetry, and cleared on any transition out of processing. A
// worker that lost its claim to the reclaimer cannot finish the job late.
type GenerationJob struct {
	ID         string
	SessionID  string
	DrugName   string
	DrugData   json.RawMessage
	Status     GenerationJobStatus
	Attempts   int
	ClaimToken string
	ClaimedBy  string
	LastError  string
	Result     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the job can never be claimed again without an
// explicit reset.
func (j *GenerationJob) Terminal() bool {
	return j.Status == GenerationJobStatusCompleted || j.Status == GenerationJobStatusFailed
}
