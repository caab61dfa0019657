package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestWorker_HandleRequeuesTransientFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		summaryErr:  &UpstreamError{Status: 503},
		timelineErr: &UpstreamError{Status: 503},
	}
	queue := &stubQueue{}
	svc := newTestAnalysisService(t, provider, newStubRepo(), queue)
	worker := NewWorker(queue, svc, WorkerConfig{MaxAttempts: 3}, nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }
	worker.policy = pinnedRetryPolicy()

	worker.handle(context.Background(), testTask(1))

	if len(queue.scheduled) != 1 {
		t.Fatalf("expected one re-queued task, got %d", len(queue.scheduled))
	}
	requeued := queue.scheduled[0]
	if requeued.task.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", requeued.task.Attempt)
	}
	if requeued.task.Payload != testTask(1).Payload {
		t.Fatalf("expected payload to be reused unchanged, got %+v", requeued.task.Payload)
	}
	if want := now.Add(5 * time.Second); !requeued.notBefore.Equal(want) {
		t.Fatalf("expected not-before %v, got %v", want, requeued.notBefore)
	}
}

func TestWorker_HandleRateLimitedUsesProviderDelay(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		summaryErr:  &RateLimitedError{RetryAfter: 30 * time.Second},
		timelineErr: &RateLimitedError{RetryAfter: 30 * time.Second},
	}
	queue := &stubQueue{}
	svc := newTestAnalysisService(t, provider, newStubRepo(), queue)
	worker := NewWorker(queue, svc, WorkerConfig{MaxAttempts: 3}, nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }
	worker.policy = pinnedRetryPolicy()

	worker.handle(context.Background(), testTask(1))

	if len(queue.scheduled) != 1 {
		t.Fatalf("expected one re-queued task, got %d", len(queue.scheduled))
	}
	if want := now.Add(30 * time.Second); !queue.scheduled[0].notBefore.Equal(want) {
		t.Fatalf("expected provider retry-after to set not-before %v, got %v", want, queue.scheduled[0].notBefore)
	}
}

func TestWorker_HandlePermanentFailureNotRequeued(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("%w: gone", ErrNotFound)
	provider := &stubProvider{summaryErr: notFound, timelineErr: notFound}
	queue := &stubQueue{}
	svc := newTestAnalysisService(t, provider, newStubRepo(), queue)
	worker := NewWorker(queue, svc, WorkerConfig{MaxAttempts: 3}, nil)

	worker.handle(context.Background(), testTask(1))

	if len(queue.scheduled) != 0 {
		t.Fatalf("expected no re-queue for permanent failure, got %d", len(queue.scheduled))
	}
}

func TestWorker_HandleAttemptBudgetExhausted(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		summaryErr:  &UpstreamError{Status: 503},
		timelineErr: &UpstreamError{Status: 503},
	}
	queue := &stubQueue{}
	svc := newTestAnalysisService(t, provider, newStubRepo(), queue)
	worker := NewWorker(queue, svc, WorkerConfig{MaxAttempts: 3}, nil)

	worker.handle(context.Background(), testTask(3))

	if len(queue.scheduled) != 0 {
		t.Fatalf("expected no re-queue on the final attempt, got %d", len(queue.scheduled))
	}
}

func TestWorker_HandleDropsInvalidPayload(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	queue := &stubQueue{}
	svc := newTestAnalysisService(t, provider, newStubRepo(), queue)
	worker := NewWorker(queue, svc, WorkerConfig{}, nil)

	task := testTask(1)
	task.Payload.MatchID = ""
	worker.handle(context.Background(), task)

	if provider.matchCalls.Load() != 0 {
		t.Fatal("expected invalid payload to be dropped before fetch")
	}
	if len(queue.scheduled) != 0 {
		t.Fatalf("expected no re-queue of invalid payloads, got %d", len(queue.scheduled))
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	svc := newTestAnalysisService(t, &stubProvider{}, newStubRepo(), queue)
	worker := NewWorker(queue, svc, WorkerConfig{Concurrency: 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
