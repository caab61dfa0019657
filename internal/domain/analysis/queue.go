package analysis

import (
	"context"
	"time"
)

// Queue hands analysis tasks from the API process to workers.
type Queue interface {
	// Enqueue makes the task available to workers immediately.
	Enqueue(ctx context.Context, task Task) error

	// EnqueueAt parks the task until notBefore; workers never see it
	// earlier. Used for retry delays so workers are not held sleeping.
	EnqueueAt(ctx context.Context, task Task, notBefore time.Time) error

	// Dequeue blocks until a task is ready or ctx is cancelled.
	Dequeue(ctx context.Context) (Task, error)
}
