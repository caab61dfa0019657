package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/domain/gamemode"
	"github.com/riskibarqy/match-insights/internal/domain/match"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
	"github.com/riskibarqy/match-insights/internal/platform/id"
	"github.com/riskibarqy/match-insights/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

// MatchDataProvider fetches completed match data from the regional provider.
type MatchDataProvider interface {
	GetMatch(ctx context.Context, region, matchID string) (match.Summary, error)
	GetTimeline(ctx context.Context, region, matchID string) (match.Timeline, error)
}

type AnalysisConfig struct {
	// MaxAttempts caps queue redeliveries per task, first attempt included.
	MaxAttempts int
	// HardTimeout bounds one attempt end to end via the context deadline.
	HardTimeout time.Duration
	// SoftTimeout is checked between stages: once exceeded the attempt gives
	// up instead of starting work it cannot finish inside HardTimeout.
	SoftTimeout time.Duration
}

type SubmitAnalysisInput struct {
	MatchID       string
	Region        string
	ParticipantID string
	RequesterID   string
}

type SubmitAnalysisOutput struct {
	CorrelationID   string
	MatchID         string
	AlreadyAnalyzed bool
}

var errSoftBudgetExhausted = errors.New("attempt soft budget exhausted")

// AnalysisService owns the match analysis pipeline: it accepts requests,
// runs the fetch-score-persist attempt for workers, and serves stored
// results.
type AnalysisService struct {
	provider MatchDataProvider
	repo     analysis.Repository
	queue    analysis.Queue
	engine   *scoring.Engine
	cfg      AnalysisConfig
	logger   *logging.Logger
	ids      id.Generator
	now      func() time.Time
}

func NewAnalysisService(
	provider MatchDataProvider,
	repo analysis.Repository,
	queue analysis.Queue,
	engine *scoring.Engine,
	cfg AnalysisConfig,
	logger *logging.Logger,
) *AnalysisService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.HardTimeout <= 0 {
		cfg.HardTimeout = 5 * time.Minute
	}
	if cfg.SoftTimeout <= 0 || cfg.SoftTimeout >= cfg.HardTimeout {
		cfg.SoftTimeout = cfg.HardTimeout * 4 / 5
	}

	return &AnalysisService{
		provider: provider,
		repo:     repo,
		queue:    queue,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		ids:      id.NewRandomGenerator(),
		now:      time.Now,
	}
}

// Submit validates the request and queues an analysis task. When the match
// was already analyzed it short-circuits without queueing.
func (s *AnalysisService) Submit(ctx context.Context, input SubmitAnalysisInput) (SubmitAnalysisOutput, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisService.Submit")
	defer span.End()

	matchID := strings.TrimSpace(input.MatchID)
	if matchID == "" {
		return SubmitAnalysisOutput{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	if _, found, err := s.repo.GetByMatchID(ctx, matchID); err != nil {
		s.logger.WarnContext(ctx, "pre-submit lookup failed, queueing anyway", "match_id", matchID, "error", err)
	} else if found {
		return SubmitAnalysisOutput{MatchID: matchID, AlreadyAnalyzed: true}, nil
	}

	now := s.now().UTC()
	task := analysis.Task{
		TaskID: uuid.NewString(),
		Payload: analysis.TaskPayload{
			CorrelationID: s.ids.NewID(),
			MatchID:       matchID,
			ParticipantID: strings.TrimSpace(input.ParticipantID),
			Region:        strings.TrimSpace(input.Region),
			RequesterID:   strings.TrimSpace(input.RequesterID),
			RequestedAt:   now,
		},
		Attempt:    1,
		EnqueuedAt: now,
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		return SubmitAnalysisOutput{}, fmt.Errorf("enqueue analysis match_id=%s: %w", matchID, err)
	}

	s.logger.InfoContext(ctx, "analysis task queued",
		"match_id", matchID,
		"task_id", task.TaskID,
		"correlation_id", task.Payload.CorrelationID,
		"region", task.Payload.Region,
	)
	return SubmitAnalysisOutput{CorrelationID: task.Payload.CorrelationID, MatchID: matchID}, nil
}

// GetByMatchID returns the stored analysis for a match.
func (s *AnalysisService) GetByMatchID(ctx context.Context, matchID string) (analysis.MatchAnalysis, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisService.GetByMatchID")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return analysis.MatchAnalysis{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	stored, found, err := s.repo.GetByMatchID(ctx, matchID)
	if err != nil {
		return analysis.MatchAnalysis{}, fmt.Errorf("get analysis match_id=%s: %w", matchID, err)
	}
	if !found {
		return analysis.MatchAnalysis{}, fmt.Errorf("%w: analysis match_id=%s", ErrNotFound, matchID)
	}
	return stored, nil
}

// Process runs one fetch-score-persist attempt for the task. It never
// returns an error: every outcome, success or failure, is reported through
// the TaskResult so the caller can apply the retry policy.
func (s *AnalysisService) Process(ctx context.Context, task analysis.Task) analysis.TaskResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisService.Process")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.HardTimeout)
	defer cancel()

	started := s.now()
	result := analysis.TaskResult{
		CorrelationID: task.Payload.CorrelationID,
		MatchID:       task.Payload.MatchID,
		Attempt:       task.Attempt,
	}

	// A stored row means an earlier attempt or a competing worker already
	// finished this match; the attempt succeeds without refetching.
	if _, found, err := s.repo.GetByMatchID(ctx, task.Payload.MatchID); err != nil {
		s.logger.WarnContext(ctx, "analysis pre-check failed, continuing with fetch", "match_id", task.Payload.MatchID, "error", err)
	} else if found {
		return s.succeedResult(ctx, result, "already analyzed")
	}

	fetchStart := s.now()
	fetched, err := s.fetchMatchData(ctx, task.Payload.Region, task.Payload.MatchID)
	result.Durations.Fetch = s.now().Sub(fetchStart)
	if err != nil {
		return s.failResult(ctx, result, analysis.StageFetch, err)
	}
	if err := fetched.summary.Validate(); err != nil {
		return s.failResult(ctx, result, analysis.StageFetch, fmt.Errorf("upstream summary: %w", err))
	}

	mode := gamemode.Detect(fetched.summary.QueueID)
	if mode.Supported() && fetched.timelineErr != nil {
		return s.failResult(ctx, result, analysis.StageFetch, fetched.timelineErr)
	}

	if s.now().Sub(started) > s.cfg.SoftTimeout {
		return s.failResult(ctx, result, analysis.StageScore, errSoftBudgetExhausted)
	}

	record := analysis.MatchAnalysis{
		MatchID:         task.Payload.MatchID,
		Region:          task.Payload.Region,
		QueueID:         fetched.summary.QueueID,
		Mode:            mode,
		Variant:         mode.Variant(),
		EngineVersion:   scoring.EngineVersion,
		DurationSeconds: fetched.summary.DurationSeconds,
		RequestedBy:     task.Payload.RequesterID,
		CreatedAt:       s.now().UTC(),
	}

	scoreStart := s.now()
	if mode.Supported() {
		timeline := fetched.timeline
		timeline.QueueID = fetched.summary.QueueID
		timeline.DurationSeconds = fetched.summary.DurationSeconds

		scores, err := s.engine.Compute(timeline, mode)
		if err != nil {
			result.Durations.Score = s.now().Sub(scoreStart)
			return s.failResult(ctx, result, analysis.StageScore, err)
		}
		record.Scores = scores
	} else {
		s.logger.InfoContext(ctx, "queue not scored dimensionally, producing basic stats",
			"match_id", task.Payload.MatchID,
			"queue_id", fetched.summary.QueueID,
			"mode", string(mode),
		)
		record.BasicStats = scoring.BasicStatsFromSummary(fetched.summary)
	}
	result.Durations.Score = s.now().Sub(scoreStart)

	if err := record.Validate(); err != nil {
		return s.failResult(ctx, result, analysis.StageScore, fmt.Errorf("assembled analysis: %w", err))
	}

	if s.now().Sub(started) > s.cfg.SoftTimeout {
		return s.failResult(ctx, result, analysis.StagePersist, errSoftBudgetExhausted)
	}

	persistStart := s.now()
	stored, err := s.repo.Save(ctx, record)
	result.Durations.Persist = s.now().Sub(persistStart)
	if err != nil {
		return s.failResult(ctx, result, analysis.StagePersist, err)
	}
	if !stored {
		return s.succeedResult(ctx, result, "lost save race, result already stored")
	}

	s.logger.InfoContext(ctx, "analysis completed",
		"match_id", result.MatchID,
		"correlation_id", result.CorrelationID,
		"attempt", result.Attempt,
		"mode", string(mode),
		"variant", string(record.Variant),
		"fetch_ms", result.Durations.Fetch.Milliseconds(),
		"score_ms", result.Durations.Score.Milliseconds(),
		"persist_ms", result.Durations.Persist.Milliseconds(),
	)
	result.Success = true
	result.ErrorStage = analysis.StageNone
	result.CompletedAt = s.now().UTC()
	return result
}

type fetchedMatchData struct {
	summary  match.Summary
	timeline match.Timeline
	// timelineErr is held back instead of failing the fetch outright:
	// unsupported queues are analyzed from the summary alone.
	timelineErr error
}

func (s *AnalysisService) fetchMatchData(ctx context.Context, region, matchID string) (fetchedMatchData, error) {
	var fetched fetchedMatchData

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		summary, err := s.provider.GetMatch(ctx, region, matchID)
		if err != nil {
			return err
		}
		fetched.summary = summary
		return nil
	})
	p.Go(func(ctx context.Context) error {
		timeline, err := s.provider.GetTimeline(ctx, region, matchID)
		if err != nil {
			fetched.timelineErr = err
			return nil
		}
		fetched.timeline = timeline
		return nil
	})

	if err := p.Wait(); err != nil {
		return fetchedMatchData{}, err
	}
	return fetched, nil
}

func (s *AnalysisService) succeedResult(ctx context.Context, result analysis.TaskResult, note string) analysis.TaskResult {
	s.logger.InfoContext(ctx, "analysis attempt succeeded without new work",
		"match_id", result.MatchID,
		"correlation_id", result.CorrelationID,
		"attempt", result.Attempt,
		"note", note,
	)
	result.Success = true
	result.ErrorStage = analysis.StageNone
	result.CompletedAt = s.now().UTC()
	return result
}

func (s *AnalysisService) failResult(ctx context.Context, result analysis.TaskResult, stage analysis.Stage, err error) analysis.TaskResult {
	reason, retryAfter := classifyFailure(stage, err)
	result.Success = false
	result.ErrorStage = stage
	result.ErrorReason = reason
	result.ErrorMessage = err.Error()
	result.RetryAfter = retryAfter
	result.CompletedAt = s.now().UTC()

	s.logger.WarnContext(ctx, "analysis attempt failed",
		"match_id", result.MatchID,
		"correlation_id", result.CorrelationID,
		"attempt", result.Attempt,
		"stage", string(stage),
		"reason", string(reason),
		"error", err,
	)
	return result
}

func classifyFailure(stage analysis.Stage, err error) (analysis.FailureReason, time.Duration) {
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return analysis.ReasonRateLimited, rateLimited.RetryAfter
	}
	var malformed *scoring.MalformedTimelineError
	if errors.As(err, &malformed) {
		return analysis.ReasonMalformedTimeline, 0
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return analysis.ReasonNotFound, 0
	case errors.Is(err, ErrUnauthorized):
		return analysis.ReasonAuthError, 0
	case errors.Is(err, errSoftBudgetExhausted),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return analysis.ReasonTimeout, 0
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status < 500 {
		return analysis.ReasonUpstreamRejected, 0
	}

	if stage == analysis.StagePersist {
		return analysis.ReasonStorageError, 0
	}
	return analysis.ReasonUpstreamError, 0
}
