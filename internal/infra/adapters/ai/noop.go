package ai

import (
	"context"
	"time"

	"drug-shortage-assistant/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*NoopGenerator)(nil)

// NoopGenerator implements adapter.TextGenerator for local/dev runs. It
// returns a minimal well-formed document so the pipeline completes end to end
// without a real backend.
type NoopGenerator struct{}

func NewNoopGenerator() *NoopGenerator { return &NoopGenerator{} }

func (a *NoopGenerator) Name() string { return "noop" }

func (a *NoopGenerator) Generate(ctx context.Context, history []adapter.Message, prompt string) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "# Drug Shortage Response Plan\n\n" +
		"## 1. Shortage Summary\nPlaceholder summary for local development.\n\n" +
		"## 2. Therapeutic Alternatives\nNone evaluated.\n\n" +
		"## 3. Operational Plan\nNo action required.\n", nil
}

func (a *NoopGenerator) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / 4, nil
}
