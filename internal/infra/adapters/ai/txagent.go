package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*TxAgent)(nil)

// TxAgent implements adapter.TextGenerator against a RunPod-hosted
// OpenAI-compatible chat endpoint. Single-shot and stateless; the call
// deadline comes entirely from the caller's context.
type TxAgent struct {
	base   string // e.g. https://<pod>.runpod.net/v1
	apiKey string
	model  string
	client *http.Client
}

func NewTxAgent(baseURL, apiKey, model string) (*TxAgent, error) {
	if baseURL == "" {
		return nil, errors.New("txagent base url empty")
	}
	if model == "" {
		model = "txagent"
	}
	return &TxAgent{
		base:   strings.TrimRight(baseURL, "/"),
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}, nil
}

func (t *TxAgent) Name() string { return "txagent" }

func (t *TxAgent) Generate(ctx context.Context, history []adapter.Message, prompt string) (string, error) {
	messages := make([]adapter.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, adapter.Message{Role: "user", Content: prompt})

	reqBody := struct {
		Model    string            `json:"model"`
		Messages []adapter.Message `json:"messages"`
	}{Model: t.model, Messages: messages}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &BackendError{Backend: t.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", &BackendError{Backend: t.Name(), Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &BackendError{Backend: t.Name(), Err: err}
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", domain.ErrEmptyCompletion
}

// CountTokens is a rough estimate; the hosted model exposes no tokenizer.
func (t *TxAgent) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / 4, nil
}
