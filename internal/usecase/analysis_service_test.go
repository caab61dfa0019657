package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/domain/gamemode"
	"github.com/riskibarqy/match-insights/internal/domain/match"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
)

func TestAnalysisService_Submit_QueuesTask(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	svc := newTestAnalysisService(t, &stubProvider{}, newStubRepo(), queue)

	out, err := svc.Submit(context.Background(), SubmitAnalysisInput{
		MatchID:     " NA1_100 ",
		Region:      "na1",
		RequesterID: "user-1",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if out.CorrelationID == "" {
		t.Fatal("expected a correlation id")
	}
	if out.MatchID != "NA1_100" {
		t.Fatalf("expected trimmed match id, got %q", out.MatchID)
	}
	if out.AlreadyAnalyzed {
		t.Fatal("expected fresh submission, got already analyzed")
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("expected one queued task, got %d", len(queue.enqueued))
	}
	task := queue.enqueued[0]
	if task.Attempt != 1 {
		t.Fatalf("expected first attempt, got %d", task.Attempt)
	}
	if task.Payload.MatchID != "NA1_100" || task.Payload.Region != "na1" {
		t.Fatalf("unexpected payload: %+v", task.Payload)
	}
	if task.Payload.RequestedAt.IsZero() {
		t.Fatal("expected requested at to be stamped")
	}
}

func TestAnalysisService_Submit_AlreadyAnalyzed(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.stored["NA1_100"] = analysis.MatchAnalysis{MatchID: "NA1_100"}
	queue := &stubQueue{}
	svc := newTestAnalysisService(t, &stubProvider{}, repo, queue)

	out, err := svc.Submit(context.Background(), SubmitAnalysisInput{MatchID: "NA1_100"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !out.AlreadyAnalyzed {
		t.Fatal("expected already analyzed short-circuit")
	}
	if len(queue.enqueued) != 0 {
		t.Fatalf("expected no queued task, got %d", len(queue.enqueued))
	}
}

func TestAnalysisService_Submit_EmptyMatchID(t *testing.T) {
	t.Parallel()

	svc := newTestAnalysisService(t, &stubProvider{}, newStubRepo(), &stubQueue{})
	if _, err := svc.Submit(context.Background(), SubmitAnalysisInput{MatchID: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalysisService_Process_FullModeSuccess(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{summary: testSummary(420), timeline: testTimeline()}
	repo := newStubRepo()
	svc := newTestAnalysisService(t, provider, repo, &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.ErrorStage != analysis.StageNone {
		t.Fatalf("expected stage none, got %s", result.ErrorStage)
	}
	if result.CompletedAt.IsZero() {
		t.Fatal("expected completed at to be stamped")
	}

	stored, ok := repo.stored["NA1_100"]
	if !ok {
		t.Fatal("expected analysis to be persisted")
	}
	if stored.Mode != gamemode.ModeClassic || stored.Variant != gamemode.VariantFull {
		t.Fatalf("unexpected mode mapping: %+v", stored)
	}
	if stored.EngineVersion != scoring.EngineVersion {
		t.Fatalf("unexpected engine version: %s", stored.EngineVersion)
	}
	if stored.QueueID != 420 || stored.DurationSeconds != 1800 {
		t.Fatalf("expected summary metadata to be carried, got %+v", stored)
	}
	if stored.Region != "na1" || stored.RequestedBy != "user-1" {
		t.Fatalf("expected request metadata to be carried, got region=%q requested_by=%q", stored.Region, stored.RequestedBy)
	}
	if len(stored.Scores) != 10 {
		t.Fatalf("expected ten player scores, got %d", len(stored.Scores))
	}
	if len(stored.BasicStats) != 0 {
		t.Fatalf("expected no basic stats on full variant, got %d", len(stored.BasicStats))
	}
}

func TestAnalysisService_Process_UnsupportedModeFallsBack(t *testing.T) {
	t.Parallel()

	// The timeline fetch fails outright; an unmapped queue must still
	// produce basic stats from the summary alone.
	provider := &stubProvider{
		summary:     testSummary(9999),
		timelineErr: &UpstreamError{Status: 502},
	}
	repo := newStubRepo()
	svc := newTestAnalysisService(t, provider, repo, &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if !result.Success {
		t.Fatalf("expected degraded success, got %+v", result)
	}
	stored, ok := repo.stored["NA1_100"]
	if !ok {
		t.Fatal("expected analysis to be persisted")
	}
	if stored.Mode != gamemode.ModeUnknown || stored.Variant != gamemode.VariantBasic {
		t.Fatalf("expected unknown/basic record, got %+v", stored)
	}
	if len(stored.BasicStats) != 10 {
		t.Fatalf("expected basic stats for all participants, got %d", len(stored.BasicStats))
	}
	if len(stored.Scores) != 0 {
		t.Fatalf("expected no dimension scores, got %d", len(stored.Scores))
	}
}

func TestAnalysisService_Process_ShortCircuitsWhenStored(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{summary: testSummary(420), timeline: testTimeline()}
	repo := newStubRepo()
	repo.stored["NA1_100"] = analysis.MatchAnalysis{MatchID: "NA1_100"}
	svc := newTestAnalysisService(t, provider, repo, &stubQueue{})

	result := svc.Process(context.Background(), testTask(2))

	if !result.Success {
		t.Fatalf("expected idempotent success, got %+v", result)
	}
	if provider.matchCalls.Load() != 0 || provider.timelineCalls.Load() != 0 {
		t.Fatal("expected no provider calls for an already analyzed match")
	}
}

func TestAnalysisService_Process_RateLimitedFetch(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		summaryErr:  &RateLimitedError{RetryAfter: 30 * time.Second},
		timelineErr: &RateLimitedError{RetryAfter: 30 * time.Second},
	}
	svc := newTestAnalysisService(t, provider, newStubRepo(), &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorStage != analysis.StageFetch {
		t.Fatalf("expected fetch stage, got %s", result.ErrorStage)
	}
	if result.ErrorReason != analysis.ReasonRateLimited {
		t.Fatalf("expected rate limited reason, got %s", result.ErrorReason)
	}
	if result.RetryAfter != 30*time.Second {
		t.Fatalf("expected provider retry-after to be carried, got %s", result.RetryAfter)
	}

	delay, retry := pinnedRetryPolicy().NextDelay(result.ErrorReason, result.RetryAfter, result.Attempt, 3)
	if !retry || delay != 30*time.Second {
		t.Fatalf("expected 30s re-queue delay, got retry=%v delay=%s", retry, delay)
	}
}

func TestAnalysisService_Process_TimelineFailureOnSupportedMode(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		summary:     testSummary(420),
		timelineErr: &UpstreamError{Status: 503},
	}
	svc := newTestAnalysisService(t, provider, newStubRepo(), &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected failure when a scored mode is missing its timeline")
	}
	if result.ErrorStage != analysis.StageFetch || result.ErrorReason != analysis.ReasonUpstreamError {
		t.Fatalf("unexpected classification: stage=%s reason=%s", result.ErrorStage, result.ErrorReason)
	}
}

func TestAnalysisService_Process_UpstreamRejectionIsPermanent(t *testing.T) {
	t.Parallel()

	// A 400 means the request itself is wrong; it must not be retried the
	// way a 5xx outage is.
	rejected := &UpstreamError{Status: 400}
	provider := &stubProvider{summaryErr: rejected, timelineErr: rejected}
	svc := newTestAnalysisService(t, provider, newStubRepo(), &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorStage != analysis.StageFetch || result.ErrorReason != analysis.ReasonUpstreamRejected {
		t.Fatalf("unexpected classification: stage=%s reason=%s", result.ErrorStage, result.ErrorReason)
	}
	if _, retry := pinnedRetryPolicy().NextDelay(result.ErrorReason, 0, result.Attempt, 3); retry {
		t.Fatal("rejected requests must not be retried")
	}
}

func TestAnalysisService_Process_InvalidSummaryFails(t *testing.T) {
	t.Parallel()

	summary := testSummary(420)
	summary.Participants[1].Slot = 1 // duplicate
	provider := &stubProvider{summary: summary, timeline: testTimeline()}
	repo := newStubRepo()
	svc := newTestAnalysisService(t, provider, repo, &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected failure for a summary that breaks the slot contract")
	}
	if result.ErrorStage != analysis.StageFetch {
		t.Fatalf("expected fetch stage, got %s", result.ErrorStage)
	}
	if len(repo.stored) != 0 {
		t.Fatal("invalid summaries must not be persisted")
	}
}

func TestAnalysisService_Process_MalformedTimeline(t *testing.T) {
	t.Parallel()

	timeline := testTimeline()
	delete(timeline.Frames[len(timeline.Frames)-1].Participants, 7)
	provider := &stubProvider{summary: testSummary(420), timeline: timeline}
	svc := newTestAnalysisService(t, provider, newStubRepo(), &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected failure for malformed timeline")
	}
	if result.ErrorStage != analysis.StageScore {
		t.Fatalf("expected score stage, got %s", result.ErrorStage)
	}
	if result.ErrorReason != analysis.ReasonMalformedTimeline {
		t.Fatalf("expected malformed timeline reason, got %s", result.ErrorReason)
	}

	if _, retry := pinnedRetryPolicy().NextDelay(result.ErrorReason, 0, result.Attempt, 3); retry {
		t.Fatal("malformed timelines must not be retried")
	}
}

func TestAnalysisService_Process_NotFound(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("%w: match does not exist in this region", ErrNotFound)
	provider := &stubProvider{summaryErr: notFound, timelineErr: notFound}
	svc := newTestAnalysisService(t, provider, newStubRepo(), &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.ErrorStage != analysis.StageFetch || result.ErrorReason != analysis.ReasonNotFound {
		t.Fatalf("unexpected classification: stage=%s reason=%s", result.ErrorStage, result.ErrorReason)
	}
	if _, retry := pinnedRetryPolicy().NextDelay(result.ErrorReason, 0, result.Attempt, 3); retry {
		t.Fatal("missing matches must not be retried")
	}
}

func TestAnalysisService_Process_PersistFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{summary: testSummary(420), timeline: testTimeline()}
	repo := newStubRepo()
	repo.saveErr = fmt.Errorf("connection refused")
	svc := newTestAnalysisService(t, provider, repo, &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected failure when persistence is down")
	}
	if result.ErrorStage != analysis.StagePersist {
		t.Fatalf("expected persist stage, got %s", result.ErrorStage)
	}
	if result.ErrorReason != analysis.ReasonStorageError {
		t.Fatalf("expected storage error reason, got %s", result.ErrorReason)
	}
}

func TestAnalysisService_Process_SaveRaceLostStillSucceeds(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{summary: testSummary(420), timeline: testTimeline()}
	repo := newStubRepo()
	repo.rejectSaves = true
	svc := newTestAnalysisService(t, provider, repo, &stubQueue{})

	result := svc.Process(context.Background(), testTask(1))

	if !result.Success {
		t.Fatalf("expected success when another writer already stored the row, got %+v", result)
	}
}

func TestAnalysisService_Process_SoftBudgetExhausted(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{summary: testSummary(1700)}
	svc := newTestAnalysisService(t, provider, newStubRepo(), &stubQueue{})
	svc.cfg.HardTimeout = 300 * time.Second
	svc.cfg.SoftTimeout = 240 * time.Second

	// Every clock read advances one minute, so the attempt crosses the soft
	// budget after scoring and must give up before persisting.
	clock := &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), step: time.Minute}
	svc.now = clock.Now

	result := svc.Process(context.Background(), testTask(1))

	if result.Success {
		t.Fatal("expected soft budget failure")
	}
	if result.ErrorStage != analysis.StagePersist {
		t.Fatalf("expected persist stage, got %s", result.ErrorStage)
	}
	if result.ErrorReason != analysis.ReasonTimeout {
		t.Fatalf("expected timeout reason, got %s", result.ErrorReason)
	}
}

func newTestAnalysisService(t *testing.T, provider MatchDataProvider, repo analysis.Repository, queue analysis.Queue) *AnalysisService {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultWeights())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return NewAnalysisService(provider, repo, queue, engine, AnalysisConfig{}, nil)
}

func testTask(attempt int) analysis.Task {
	return analysis.Task{
		Payload: analysis.TaskPayload{
			CorrelationID: "corr-1",
			MatchID:       "NA1_100",
			Region:        "na1",
			RequesterID:   "user-1",
			RequestedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Attempt:    attempt,
		EnqueuedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testSummary(queueID int) match.Summary {
	participants := make([]match.SummaryParticipant, 0, match.MaxSlot)
	for slot := match.MinSlot; slot <= match.MaxSlot; slot++ {
		participants = append(participants, match.SummaryParticipant{
			Slot:              slot,
			TeamID:            match.TeamForSlot(slot),
			ChampionName:      fmt.Sprintf("Champion%d", slot),
			Kills:             slot,
			Deaths:            2,
			Assists:           3,
			GoldEarned:        9000 + slot*100,
			CreepScore:        150,
			VisionScore:       20,
			DamageToChampions: 15000,
			Win:               slot <= 5,
		})
	}
	return match.Summary{
		MatchID:         "NA1_100",
		QueueID:         queueID,
		DurationSeconds: 1800,
		Participants:    participants,
	}
}

func testTimeline() match.Timeline {
	states := func(gold int) map[int]match.ParticipantState {
		out := make(map[int]match.ParticipantState, match.MaxSlot)
		for slot := match.MinSlot; slot <= match.MaxSlot; slot++ {
			out[slot] = match.ParticipantState{
				Slot:              slot,
				CurrentGold:       gold / 10,
				TotalGold:         gold,
				MinionsKilled:     gold / 100,
				DamageToChampions: gold * 2,
			}
		}
		return out
	}

	return match.Timeline{
		MatchID:         "NA1_100",
		DurationSeconds: 1800,
		FrameIntervalMS: 60000,
		Frames: []match.Frame{
			{TimestampMS: 0, Participants: states(500)},
			{
				TimestampMS:  1_800_000,
				Participants: states(12000),
				Events: []match.Event{
					{Type: match.EventWardPlaced, TimestampMS: 300_000, KillerSlot: 4, WardType: "YELLOW_TRINKET"},
					{Type: match.EventChampionKill, TimestampMS: 600_000, KillerSlot: 1, VictimSlot: 6, AssistSlots: []int{2}},
					{Type: match.EventEliteMonsterKill, TimestampMS: 900_000, KillerSlot: 1, MonsterType: "DRAGON"},
				},
			},
		},
	}
}

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type stubProvider struct {
	summary       match.Summary
	summaryErr    error
	timeline      match.Timeline
	timelineErr   error
	matchCalls    atomic.Int32
	timelineCalls atomic.Int32
}

func (p *stubProvider) GetMatch(_ context.Context, _, _ string) (match.Summary, error) {
	p.matchCalls.Add(1)
	return p.summary, p.summaryErr
}

func (p *stubProvider) GetTimeline(_ context.Context, _, _ string) (match.Timeline, error) {
	p.timelineCalls.Add(1)
	return p.timeline, p.timelineErr
}

type stubAnalysisRepo struct {
	mu          sync.Mutex
	stored      map[string]analysis.MatchAnalysis
	getErr      error
	saveErr     error
	rejectSaves bool
}

func newStubRepo() *stubAnalysisRepo {
	return &stubAnalysisRepo{stored: map[string]analysis.MatchAnalysis{}}
}

func (r *stubAnalysisRepo) GetByMatchID(_ context.Context, matchID string) (analysis.MatchAnalysis, bool, error) {
	if r.getErr != nil {
		return analysis.MatchAnalysis{}, false, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.stored[matchID]
	return stored, ok, nil
}

func (r *stubAnalysisRepo) Save(_ context.Context, a analysis.MatchAnalysis) (bool, error) {
	if r.saveErr != nil {
		return false, r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejectSaves {
		return false, nil
	}
	if _, exists := r.stored[a.MatchID]; exists {
		return false, nil
	}
	r.stored[a.MatchID] = a
	return true, nil
}

type scheduledTask struct {
	task      analysis.Task
	notBefore time.Time
}

type stubQueue struct {
	mu         sync.Mutex
	enqueued   []analysis.Task
	scheduled  []scheduledTask
	enqueueErr error
}

func (q *stubQueue) Enqueue(_ context.Context, task analysis.Task) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, task)
	return nil
}

func (q *stubQueue) EnqueueAt(_ context.Context, task analysis.Task, notBefore time.Time) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scheduled = append(q.scheduled, scheduledTask{task: task, notBefore: notBefore})
	return nil
}

func (q *stubQueue) Dequeue(ctx context.Context) (analysis.Task, error) {
	<-ctx.Done()
	return analysis.Task{}, ctx.Err()
}
