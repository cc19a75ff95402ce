package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
)

type jobResponse struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	DrugName  string          `json:"drug_name"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	Result    string          `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DrugData  json.RawMessage `json:"drug_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// toJobResponse hides internal failure detail: clients get a short, generic
// message, never upstream error strings.
func toJobResponse(j *model.GenerationJob) jobResponse {
	resp := jobResponse{
		ID:        j.ID,
		SessionID: j.SessionID,
		DrugName:  j.DrugName,
		Status:    string(j.Status),
		Attempts:  j.Attempts,
		Result:    j.Result,
		DrugData:  j.DrugData,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Status == model.GenerationJobStatusFailed {
		resp.Error = "generation failed, please retry"
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses; anything unknown
// becomes a plain 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrJobNotRetryable):
		writeError(w, http.StatusConflict, "job is not in a retryable state")
	case errors.Is(err, domain.ErrAwaitTimeout):
		writeError(w, http.StatusGatewayTimeout, "timed out waiting for job completion")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type enqueueRequest struct {
	DrugName string          `json:"drug_name"`
	DrugData json.RawMessage `json:"drug_data,omitempty"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.docUC.Enqueue(r.Context(), sessionID, req.DrugName, req.DrugData)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("enqueue failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.docUC.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleSessionJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.docUC.StatusBySession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleAwait(w http.ResponseWriter, r *http.Request) {
	job, err := s.docUC.AwaitCompletion(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	job, err := s.docUC.Retry(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

type recoverRequest struct {
	JobID         string `json:"job_id,omitempty"`
	ResetAllStale bool   `json:"reset_all_stale,omitempty"`
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.ResetAllStale:
		n, err := s.sweeper.Sweep(r.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("manual stale sweep failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "stale jobs reset", "reset": n})
	case req.JobID != "":
		if err := s.docUC.ForceReset(r.Context(), req.JobID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "job reset", "reset": 1})
	default:
		writeError(w, http.StatusBadRequest, "job_id or reset_all_stale required")
	}
}

// handleWorkerRun is the external trigger: idempotent, safe with no body,
// processes at most one job per call.
func (s *Server) handleWorkerRun(w http.ResponseWriter, r *http.Request) {
	worked, err := s.runner.RunOnce(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("worker run failed")
		writeError(w, http.StatusInternalServerError, "worker run failed")
		return
	}
	if !worked {
		writeMessage(w, http.StatusOK, "no pending jobs")
		return
	}
	writeMessage(w, http.StatusOK, "processed one job")
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docUC.GetDocument(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": doc.SessionID,
		"drug_name":  doc.DrugName,
		"content":    doc.Content,
		"updated_at": doc.UpdatedAt,
	})
}

type saveDocumentRequest struct {
	DrugName string `json:"drug_name"`
	Content  string `json:"content"`
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	var req saveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.docUC.SaveDocument(r.Context(), chi.URLParam(r, "sessionID"), req.DrugName, req.Content); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "document saved")
}

type chatRequest struct {
	AssistantType string `json:"assistant_type"`
	Message       string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, intent, err := s.chatUC.Send(r.Context(), chi.URLParam(r, "sessionID"), model.AssistantType(req.AssistantType), req.Message)
	if err != nil {
		s.log.Error().Err(err).Msg("chat failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply":  reply,
		"intent": string(intent),
	})
}
