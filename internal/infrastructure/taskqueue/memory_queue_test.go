package taskqueue

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueueEnqueueDequeueRoundTrip(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue()
	ctx := context.Background()

	want := queueTask("NA1_300", 1)
	if err := queue.Enqueue(ctx, want); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got.Payload != want.Payload || got.Attempt != want.Attempt {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestMemoryQueueDequeueIsFIFO(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue()
	ctx := context.Background()

	for _, id := range []string{"NA1_1", "NA1_2", "NA1_3"} {
		if err := queue.Enqueue(ctx, queueTask(id, 1)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	for _, want := range []string{"NA1_1", "NA1_2", "NA1_3"} {
		got, err := queue.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got.Payload.MatchID != want {
			t.Fatalf("expected %s, got %s", want, got.Payload.MatchID)
		}
	}
}

func TestMemoryQueueParkedTaskBecomesReadyWhenDue(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue()
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return current }

	if err := queue.EnqueueAt(ctx, queueTask("NA1_400", 2), current.Add(45*time.Second)); err != nil {
		t.Fatalf("enqueue at: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	if _, err := queue.Dequeue(waitCtx); err == nil {
		cancel()
		t.Fatal("expected dequeue to block while task is parked")
	}
	cancel()

	current = current.Add(time.Minute)
	got, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue after due: %v", err)
	}
	if got.Payload.MatchID != "NA1_400" || got.Attempt != 2 {
		t.Fatalf("unexpected task: match_id=%s attempt=%d", got.Payload.MatchID, got.Attempt)
	}
}

func TestMemoryQueueReadyTasksDrainBeforeParked(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue()
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return current }

	if err := queue.EnqueueAt(ctx, queueTask("NA1_PARKED", 2), current.Add(-time.Second)); err != nil {
		t.Fatalf("enqueue parked: %v", err)
	}
	if err := queue.Enqueue(ctx, queueTask("NA1_READY", 1)); err != nil {
		t.Fatalf("enqueue ready: %v", err)
	}

	first, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue first: %v", err)
	}
	second, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue second: %v", err)
	}

	if first.Payload.MatchID != "NA1_READY" || second.Payload.MatchID != "NA1_PARKED" {
		t.Fatalf("unexpected order: first=%s second=%s", first.Payload.MatchID, second.Payload.MatchID)
	}
}

func TestMemoryQueueDequeueStopsOnCancel(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := queue.Dequeue(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected dequeue to fail after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue did not stop after cancel")
	}
}
