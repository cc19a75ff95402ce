package adapter

import "context"

// WorkerTrigger wakes an external worker runner after an enqueue so a job is
// picked up sooner than the next poll tick. Notification is fire-and-forget:
// implementations log failures but never surface them to the enqueue path.
type WorkerTrigger interface {
	Wake(ctx context.Context)
}
