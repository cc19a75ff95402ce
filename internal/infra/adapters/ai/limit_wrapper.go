package ai

import (
	"context"

	"drug-shortage-assistant/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TextGenerator = (*limitedGenerator)(nil)

type limitedGenerator struct {
	inner adapter.TextGenerator
	sem   chan struct{}
}

// NewLimited caps concurrent calls against the backend with a semaphore.
func NewLimited(inner adapter.TextGenerator, maxConcurrent int) adapter.TextGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGenerator{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGenerator) Name() string { return l.inner.Name() }

func (l *limitedGenerator) Generate(ctx context.Context, history []adapter.Message, prompt string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, history, prompt)
}

func (l *limitedGenerator) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	return l.inner.CountTokens(ctx, messages)
}
