package analysis

import (
	"fmt"
	"time"

	"github.com/riskibarqy/match-insights/internal/domain/gamemode"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
)

// TaskPayload is the analysis request as it travels through the queue. It is
// immutable: retries reuse the same payload under a fresh attempt counter.
type TaskPayload struct {
	CorrelationID string    `json:"correlation_id" validate:"required"`
	MatchID       string    `json:"match_id" validate:"required"`
	ParticipantID string    `json:"participant_id,omitempty"`
	Region        string    `json:"region,omitempty"`
	RequesterID   string    `json:"requester_id,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

// Task wraps a payload with its delivery metadata. TaskID identifies the
// queued unit of work across retries; Attempt starts at 1.
type Task struct {
	TaskID     string      `json:"task_id,omitempty"`
	Payload    TaskPayload `json:"payload"`
	Attempt    int         `json:"attempt" validate:"gte=1"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// NextAttempt derives the retry task: same id and payload, incremented
// attempt.
func (t Task) NextAttempt(enqueuedAt time.Time) Task {
	return Task{
		TaskID:     t.TaskID,
		Payload:    t.Payload,
		Attempt:    t.Attempt + 1,
		EnqueuedAt: enqueuedAt,
	}
}

// Stage names the pipeline step an error is attributed to.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageScore   Stage = "score"
	StagePersist Stage = "persist"
	StageNone    Stage = "none"
)

type FailureReason string

const (
	ReasonRateLimited   FailureReason = "rate_limited"
	ReasonUpstreamError FailureReason = "upstream_error"
	// ReasonUpstreamRejected marks 4xx responses other than the mapped ones:
	// the request itself is wrong, so repeating it cannot help.
	ReasonUpstreamRejected  FailureReason = "upstream_rejected"
	ReasonNotFound          FailureReason = "not_found"
	ReasonAuthError         FailureReason = "auth_error"
	ReasonMalformedTimeline FailureReason = "malformed_timeline"
	ReasonStorageError      FailureReason = "storage_error"
	ReasonTimeout           FailureReason = "timeout"
)

// StageDurations carries per-stage wall clock from the attempt that produced
// the result.
type StageDurations struct {
	Fetch   time.Duration `json:"fetch"`
	Score   time.Duration `json:"score"`
	Persist time.Duration `json:"persist"`
}

// TaskResult is the outcome of one attempt. ErrorStage is StageNone on
// success. RetryAfter carries the provider-requested wait for rate limited
// failures so the retry policy can honor it.
type TaskResult struct {
	CorrelationID string
	MatchID       string
	Success       bool
	ErrorStage    Stage
	ErrorReason   FailureReason
	ErrorMessage  string
	RetryAfter    time.Duration
	Attempt       int
	Durations     StageDurations
	CompletedAt   time.Time
}

// MatchAnalysis is the persisted result for one match: either full/lite
// dimension scores or basic fallback stats, never both.
type MatchAnalysis struct {
	MatchID         string
	Region          string
	QueueID         int
	Mode            gamemode.Mode
	Variant         gamemode.Variant
	EngineVersion   string
	DurationSeconds int64
	Scores          []scoring.PlayerScore
	BasicStats      []scoring.BasicStats
	RequestedBy     string
	CreatedAt       time.Time
}

func (a MatchAnalysis) Validate() error {
	if a.MatchID == "" {
		return fmt.Errorf("match id is required")
	}
	if a.Mode == "" {
		return fmt.Errorf("game mode is required")
	}
	if a.EngineVersion == "" {
		return fmt.Errorf("engine version is required")
	}

	switch a.Variant {
	case gamemode.VariantFull, gamemode.VariantLite:
		if len(a.Scores) == 0 {
			return fmt.Errorf("variant %s requires dimension scores", a.Variant)
		}
		if len(a.BasicStats) != 0 {
			return fmt.Errorf("variant %s must not carry basic stats", a.Variant)
		}
	case gamemode.VariantBasic:
		if len(a.BasicStats) == 0 {
			return fmt.Errorf("basic variant requires basic stats")
		}
		if len(a.Scores) != 0 {
			return fmt.Errorf("basic variant must not carry dimension scores")
		}
	default:
		return fmt.Errorf("unknown analysis variant %q", a.Variant)
	}

	return nil
}
