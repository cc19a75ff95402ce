package trigger

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	adapterport "drug-shortage-assistant/internal/domain/ports/adapter"
)

var _ adapterport.WorkerTrigger = (*WebhookTrigger)(nil)

// WebhookTrigger pings an external runner (CI workflow dispatch or an HTTP
// cron) after an enqueue so the job is picked up before the next poll tick.
// Strictly fire-and-forget: failures are logged and dropped, never returned.
type WebhookTrigger struct {
	url    string
	token  string
	client *http.Client
	log    *zerolog.Logger
}

func NewWebhookTrigger(url, token string, logger *zerolog.Logger) *WebhookTrigger {
	l := logger.With().Str("component", "WebhookTrigger").Logger()
	return &WebhookTrigger{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    &l,
	}
}

func (t *WebhookTrigger) Wake(ctx context.Context) {
	if t.url == "" {
		return
	}
	go func() {
		// Detached from the request context so the enqueue response does
		// not wait on the ping.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, nil)
		if err != nil {
			t.log.Warn().Err(err).Msg("build wake request")
			return
		}
		if t.token != "" {
			req.Header.Set("Authorization", "Bearer "+t.token)
		}
		resp, err := t.client.Do(req)
		if err != nil {
			t.log.Warn().Err(err).Msg("worker wake ping failed")
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			t.log.Warn().Int("status", resp.StatusCode).Msg("worker wake ping rejected")
		}
	}()
}

// NoopTrigger is used when no external runner is configured.
type NoopTrigger struct{}

func (NoopTrigger) Wake(context.Context) {}
