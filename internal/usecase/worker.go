package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/platform/logging"
)

type WorkerConfig struct {
	Concurrency int
	MaxAttempts int
}

// Worker drains the analysis queue: each dequeued task runs one Process
// attempt on a pooled goroutine, and failed attempts are re-queued according
// to the retry policy.
type Worker struct {
	queue    analysis.Queue
	service  *AnalysisService
	cfg      WorkerConfig
	logger   *logging.Logger
	validate *validator.Validate
	policy   *RetryPolicy
	now      func() time.Time
}

func NewWorker(queue analysis.Queue, service *AnalysisService, cfg WorkerConfig, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Worker{
		queue:    queue,
		service:  service,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
		policy:   NewRetryPolicy(),
		now:      time.Now,
	}
}

// Run consumes tasks until ctx is cancelled, then waits for in-flight
// attempts to finish.
func (w *Worker) Run(ctx context.Context) error {
	workers, err := ants.NewPool(w.cfg.Concurrency)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	w.logger.InfoContext(ctx, "analysis worker started", "concurrency", w.cfg.Concurrency)

	var inflight sync.WaitGroup
	for ctx.Err() == nil {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.WarnContext(ctx, "dequeue failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		inflight.Add(1)
		if err := workers.Submit(func() {
			defer inflight.Done()
			w.handle(ctx, task)
		}); err != nil {
			inflight.Done()
			w.logger.ErrorContext(ctx, "submit task to worker pool failed", "error", err)
		}
	}

	inflight.Wait()
	w.logger.Info("analysis worker stopped")
	return nil
}

func (w *Worker) handle(ctx context.Context, task analysis.Task) {
	if err := w.validate.StructCtx(ctx, task.Payload); err != nil {
		w.logger.ErrorContext(ctx, "dropping task with invalid payload", "error", err)
		return
	}

	result := w.service.Process(ctx, task)
	if result.Success {
		return
	}

	delay, retry := w.policy.NextDelay(result.ErrorReason, result.RetryAfter, result.Attempt, w.cfg.MaxAttempts)
	if !retry {
		w.logger.ErrorContext(ctx, "analysis failed permanently",
			"match_id", result.MatchID,
			"correlation_id", result.CorrelationID,
			"attempts", result.Attempt,
			"stage", string(result.ErrorStage),
			"reason", string(result.ErrorReason),
			"error_message", result.ErrorMessage,
		)
		return
	}

	now := w.now().UTC()
	notBefore := now.Add(delay)
	if err := w.queue.EnqueueAt(ctx, task.NextAttempt(now), notBefore); err != nil {
		w.logger.ErrorContext(ctx, "re-enqueue failed",
			"match_id", result.MatchID,
			"correlation_id", result.CorrelationID,
			"error", err,
		)
		return
	}

	w.logger.InfoContext(ctx, "analysis attempt re-queued",
		"match_id", result.MatchID,
		"correlation_id", result.CorrelationID,
		"next_attempt", result.Attempt+1,
		"not_before", notBefore.Format(time.RFC3339),
		"reason", string(result.ErrorReason),
	)
}
