package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// TextGenerator is the single port both LLM backends implement. The caller
// bounds every call with a context deadline (chat vs. document generation use
// different budgets); implementations must honor cancellation.
type TextGenerator interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Generate returns one completion for the given history plus prompt.
	// History may be empty for stateless document generation.
	Generate(ctx context.Context, history []Message, prompt string) (string, error)

	// CountTokens returns prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, messages []Message) (int, error)
}
