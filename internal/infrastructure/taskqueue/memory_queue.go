package taskqueue

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/match-insights/internal/domain/analysis"
)

type parkedTask struct {
	task      analysis.Task
	notBefore time.Time
}

// MemoryQueue is the in-process twin of RedisQueue for local runs and tests.
// Ready tasks drain in FIFO order and parked tasks become ready once their
// not-before time has passed.
type MemoryQueue struct {
	mu     sync.Mutex
	ready  []analysis.Task
	parked []parkedTask
	wake   chan struct{}

	now func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, task analysis.Task) error {
	q.mu.Lock()
	q.ready = append(q.ready, task)
	q.mu.Unlock()

	q.signal()
	return nil
}

func (q *MemoryQueue) EnqueueAt(_ context.Context, task analysis.Task, notBefore time.Time) error {
	q.mu.Lock()
	q.parked = append(q.parked, parkedTask{task: task, notBefore: notBefore})
	q.mu.Unlock()

	q.signal()
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (analysis.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return analysis.Task{}, err
		}

		q.mu.Lock()
		q.promoteDueLocked(q.now())
		if len(q.ready) > 0 {
			task := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return task, nil
		}
		wait := q.nextWakeLocked()
		q.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return analysis.Task{}, ctx.Err()
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (q *MemoryQueue) promoteDueLocked(now time.Time) {
	if len(q.parked) == 0 {
		return
	}

	remaining := q.parked[:0]
	for _, p := range q.parked {
		if p.notBefore.After(now) {
			remaining = append(remaining, p)
			continue
		}
		q.ready = append(q.ready, p.task)
	}
	q.parked = remaining
}

// nextWakeLocked returns how long Dequeue may sleep: until the earliest
// parked task comes due, capped at the promote interval.
func (q *MemoryQueue) nextWakeLocked() time.Duration {
	wait := defaultPromoteInterval
	now := q.now()
	for _, p := range q.parked {
		if due := p.notBefore.Sub(now); due > 0 && due < wait {
			wait = due
		}
	}
	return wait
}

func (q *MemoryQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
