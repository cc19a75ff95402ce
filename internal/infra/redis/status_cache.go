package redis

import (
	"context"
	"encoding/json"
	"time"

	"drug-shortage-assistant/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

// StatusCache fronts job-status reads for the polling endpoint and publishes
// status transitions for realtime subscribers. It is best-effort: a cold or
// unreachable cache falls back to the job store.
type StatusCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewStatusCache(client RedisClient, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

type statusPayload struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

func statusKey(jobID string) string      { return "job_status:" + jobID }
func statusChannel(sessID string) string { return "job_updates:" + sessID }

// Store caches the job's status and broadcasts it on the session channel.
func (c *StatusCache) Store(ctx context.Context, job *model.GenerationJob) error {
	p := statusPayload{
		JobID:     job.ID,
		SessionID: job.SessionID,
		Status:    string(job.Status),
		Attempts:  job.Attempts,
		LastError: job.LastError,
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, statusKey(job.ID), data, c.ttl); err != nil {
		return err
	}
	return c.client.Publish(ctx, statusChannel(job.SessionID), data)
}

// GetStatus returns the cached status for a job, or ("", false) on a miss.
func (c *StatusCache) GetStatus(ctx context.Context, jobID string) (model.GenerationJobStatus, bool) {
	data, err := c.client.Get(ctx, statusKey(jobID))
	if err != nil {
		return "", false
	}
	var p statusPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return "", false
	}
	return model.GenerationJobStatus(p.Status), true
}

// Invalidate drops the cached status, forcing the next read to the store.
func (c *StatusCache) Invalidate(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, statusKey(jobID))
}

// Updates subscribes to status transitions for one session.
func (c *StatusCache) Updates(ctx context.Context, sessionID string) *redis.PubSub {
	return c.client.Subscribe(ctx, statusChannel(sessionID))
}
