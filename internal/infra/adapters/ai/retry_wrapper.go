package ai

import (
	"context"
	"time"

	"drug-shortage-assistant/internal/domain/ports/adapter"
	"drug-shortage-assistant/internal/infra/metrics"
)

// Compile-time check
var _ adapter.TextGenerator = (*retryingGenerator)(nil)

const (
	defaultMaxCalls  = 3
	defaultBaseDelay = 2500 * time.Millisecond
)

type retryingGenerator struct {
	inner     adapter.TextGenerator
	maxCalls  int
	baseDelay time.Duration
}

// NewRetrying retries transient backend failures with exponential backoff
// (baseDelay × 2^attempt), at most maxCalls calls, never past the caller's
// deadline. Non-transient errors and context expiry return immediately.
func NewRetrying(inner adapter.TextGenerator, maxCalls int, baseDelay time.Duration) adapter.TextGenerator {
	if maxCalls <= 0 {
		maxCalls = defaultMaxCalls
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &retryingGenerator{inner: inner, maxCalls: maxCalls, baseDelay: baseDelay}
}

func (r *retryingGenerator) Name() string { return r.inner.Name() }

func (r *retryingGenerator) Generate(ctx context.Context, history []adapter.Message, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxCalls; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			metrics.IncAIRetry(r.inner.Name())
		}

		out, err := r.inner.Generate(ctx, history, prompt)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (r *retryingGenerator) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	return r.inner.CountTokens(ctx, messages)
}
