package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
	"github.com/riskibarqy/match-insights/internal/platform/logging"
	"github.com/riskibarqy/match-insights/internal/usecase"
)

type Handler struct {
	analysisService *usecase.AnalysisService
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(analysisService *usecase.AnalysisService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		analysisService: analysisService,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitAnalysis")
	defer span.End()

	req, err := decodeSubmitAnalysisRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	// Anonymous submissions are attributed to the caller's network address.
	requesterID := strings.TrimSpace(req.RequesterID)
	if requesterID == "" {
		requesterID = resolveClientIP(ctx, r)
	}

	out, err := h.analysisService.Submit(ctx, usecase.SubmitAnalysisInput{
		MatchID:       req.MatchID,
		Region:        req.Region,
		ParticipantID: req.ParticipantID,
		RequesterID:   requesterID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit analysis failed", "match_id", req.MatchID, "requester_id", requesterID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, submitAnalysisResponse{
		MatchID:         out.MatchID,
		CorrelationID:   out.CorrelationID,
		AlreadyAnalyzed: out.AlreadyAnalyzed,
	})
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAnalysis")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))

	stored, err := h.analysisService.GetByMatchID(ctx, matchID)
	if err != nil {
		if !errors.Is(err, usecase.ErrNotFound) {
			h.logger.WarnContext(ctx, "get analysis failed", "match_id", matchID, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchAnalysisToDTO(ctx, stored))
}

func decodeSubmitAnalysisRequest(r *http.Request) (submitAnalysisRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req submitAnalysisRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return submitAnalysisRequest{}, fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return submitAnalysisRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

type submitAnalysisRequest struct {
	MatchID       string `json:"match_id" validate:"required,max=64"`
	Region        string `json:"region" validate:"omitempty,max=16"`
	ParticipantID string `json:"participant_id" validate:"omitempty,max=128"`
	RequesterID   string `json:"requester_id" validate:"omitempty,max=128"`
}

type submitAnalysisResponse struct {
	MatchID         string `json:"match_id"`
	CorrelationID   string `json:"correlation_id,omitempty"`
	AlreadyAnalyzed bool   `json:"already_analyzed"`
}

type matchAnalysisDTO struct {
	MatchID         string           `json:"match_id"`
	Region          string           `json:"region,omitempty"`
	QueueID         int              `json:"queue_id"`
	Mode            string           `json:"mode"`
	Variant         string           `json:"variant"`
	EngineVersion   string           `json:"engine_version"`
	DurationSeconds int64            `json:"duration_seconds"`
	Scores          []playerScoreDTO `json:"scores,omitempty"`
	BasicStats      []basicStatsDTO  `json:"basic_stats,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

type playerScoreDTO struct {
	Slot       int                `json:"slot"`
	Dimensions map[string]float64 `json:"dimensions"`
	Overall    float64            `json:"overall"`
	Raw        rawMetricsDTO      `json:"raw"`
}

type rawMetricsDTO struct {
	Kills             int     `json:"kills"`
	Deaths            int     `json:"deaths"`
	Assists           int     `json:"assists"`
	KDA               float64 `json:"kda"`
	GoldEarned        int     `json:"gold_earned"`
	GoldSpent         int     `json:"gold_spent"`
	CreepScore        int     `json:"creep_score"`
	DamageToChampions int     `json:"damage_to_champions"`
	WardsPlaced       int     `json:"wards_placed"`
	WardsKilled       int     `json:"wards_killed"`
	KillParticipation float64 `json:"kill_participation"`
	FightPresence     float64 `json:"fight_presence"`
}

type basicStatsDTO struct {
	Slot         int     `json:"slot"`
	ChampionName string  `json:"champion_name"`
	Kills        int     `json:"kills"`
	Deaths       int     `json:"deaths"`
	Assists      int     `json:"assists"`
	KDA          float64 `json:"kda"`
	GoldEarned   int     `json:"gold_earned"`
	CreepScore   int     `json:"creep_score"`
	VisionScore  int     `json:"vision_score"`
	Win          bool    `json:"win"`
}

func matchAnalysisToDTO(ctx context.Context, v analysis.MatchAnalysis) matchAnalysisDTO {
	ctx, span := startSpan(ctx, "httpapi.matchAnalysisToDTO")
	defer span.End()

	dto := matchAnalysisDTO{
		MatchID:         v.MatchID,
		Region:          v.Region,
		QueueID:         v.QueueID,
		Mode:            string(v.Mode),
		Variant:         string(v.Variant),
		EngineVersion:   v.EngineVersion,
		DurationSeconds: v.DurationSeconds,
		CreatedAt:       v.CreatedAt,
	}
	if len(v.Scores) > 0 {
		dto.Scores = make([]playerScoreDTO, 0, len(v.Scores))
		for _, score := range v.Scores {
			dto.Scores = append(dto.Scores, playerScoreToDTO(ctx, score))
		}
	}
	if len(v.BasicStats) > 0 {
		dto.BasicStats = make([]basicStatsDTO, 0, len(v.BasicStats))
		for _, stats := range v.BasicStats {
			dto.BasicStats = append(dto.BasicStats, basicStatsToDTO(ctx, stats))
		}
	}

	return dto
}

func playerScoreToDTO(ctx context.Context, v scoring.PlayerScore) playerScoreDTO {
	_, span := startSpan(ctx, "httpapi.playerScoreToDTO")
	defer span.End()

	dimensions := make(map[string]float64, len(v.Dimensions))
	for dimension, value := range v.Dimensions {
		dimensions[string(dimension)] = value
	}

	return playerScoreDTO{
		Slot:       v.Slot,
		Dimensions: dimensions,
		Overall:    v.Overall,
		Raw: rawMetricsDTO{
			Kills:             v.Raw.Kills,
			Deaths:            v.Raw.Deaths,
			Assists:           v.Raw.Assists,
			KDA:               v.Raw.KDA,
			GoldEarned:        v.Raw.GoldEarned,
			GoldSpent:         v.Raw.GoldSpent,
			CreepScore:        v.Raw.CreepScore,
			DamageToChampions: v.Raw.DamageToChampions,
			WardsPlaced:       v.Raw.WardsPlaced,
			WardsKilled:       v.Raw.WardsKilled,
			KillParticipation: v.Raw.KillParticipation,
			FightPresence:     v.Raw.FightPresence,
		},
	}
}

func basicStatsToDTO(ctx context.Context, v scoring.BasicStats) basicStatsDTO {
	_, span := startSpan(ctx, "httpapi.basicStatsToDTO")
	defer span.End()

	return basicStatsDTO{
		Slot:         v.Slot,
		ChampionName: v.ChampionName,
		Kills:        v.Kills,
		Deaths:       v.Deaths,
		Assists:      v.Assists,
		KDA:          v.KDA,
		GoldEarned:   v.GoldEarned,
		CreepScore:   v.CreepScore,
		VisionScore:  v.VisionScore,
		Win:          v.Win,
	}
}
