package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/domain/gamemode"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
	qb "github.com/riskibarqy/match-insights/internal/platform/querybuilder"
)

type AnalysisRepository struct {
	db *sqlx.DB
}

func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) GetByMatchID(ctx context.Context, matchID string) (analysis.MatchAnalysis, bool, error) {
	query, args, err := qb.Select("*").
		From("match_analyses").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return analysis.MatchAnalysis{}, false, fmt.Errorf("build get match analysis query: %w", err)
	}

	var row matchAnalysisTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return analysis.MatchAnalysis{}, false, nil
		}
		return analysis.MatchAnalysis{}, false, fmt.Errorf("get match analysis match_id=%s: %w", matchID, err)
	}

	out, err := matchAnalysisToDomain(row)
	if err != nil {
		return analysis.MatchAnalysis{}, false, fmt.Errorf("decode match analysis match_id=%s: %w", matchID, err)
	}
	return out, true, nil
}

// Save inserts the analysis unless a row for the match already exists. The
// ON CONFLICT DO NOTHING suffix makes concurrent writers race safely: exactly
// one insert lands and the rest observe zero rows affected.
func (r *AnalysisRepository) Save(ctx context.Context, a analysis.MatchAnalysis) (bool, error) {
	model, err := matchAnalysisInsert(a)
	if err != nil {
		return false, fmt.Errorf("encode match analysis match_id=%s: %w", a.MatchID, err)
	}

	query, args, err := qb.InsertModel("match_analyses", model, "ON CONFLICT (match_id) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build save match analysis query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("save match analysis match_id=%s: %w", a.MatchID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save match analysis match_id=%s rows affected: %w", a.MatchID, err)
	}
	return affected > 0, nil
}

func matchAnalysisInsert(a analysis.MatchAnalysis) (matchAnalysisInsertModel, error) {
	model := matchAnalysisInsertModel{
		MatchID:         a.MatchID,
		Region:          a.Region,
		QueueID:         a.QueueID,
		Mode:            string(a.Mode),
		Variant:         string(a.Variant),
		EngineVersion:   a.EngineVersion,
		DurationSeconds: a.DurationSeconds,
		RequestedBy:     a.RequestedBy,
		CreatedAt:       a.CreatedAt.UTC(),
	}

	if len(a.Scores) > 0 {
		raw, err := sonic.Marshal(playerScoresToDocs(a.Scores))
		if err != nil {
			return matchAnalysisInsertModel{}, fmt.Errorf("marshal scores: %w", err)
		}
		encoded := string(raw)
		model.Scores = &encoded
	}
	if len(a.BasicStats) > 0 {
		raw, err := sonic.Marshal(basicStatsToDocs(a.BasicStats))
		if err != nil {
			return matchAnalysisInsertModel{}, fmt.Errorf("marshal basic stats: %w", err)
		}
		encoded := string(raw)
		model.BasicStats = &encoded
	}
	return model, nil
}

func matchAnalysisToDomain(row matchAnalysisTableModel) (analysis.MatchAnalysis, error) {
	out := analysis.MatchAnalysis{
		MatchID:         row.MatchID,
		Region:          row.Region,
		QueueID:         row.QueueID,
		Mode:            gamemode.Mode(row.Mode),
		Variant:         gamemode.Variant(row.Variant),
		EngineVersion:   row.EngineVersion,
		DurationSeconds: row.DurationSeconds,
		RequestedBy:     row.RequestedBy,
		CreatedAt:       row.CreatedAt,
	}

	if row.Scores.Valid {
		var docs []playerScoreDoc
		if err := sonic.Unmarshal([]byte(row.Scores.String), &docs); err != nil {
			return analysis.MatchAnalysis{}, fmt.Errorf("unmarshal scores: %w", err)
		}
		out.Scores = playerScoresFromDocs(docs)
	}
	if row.BasicStats.Valid {
		var docs []basicStatsDoc
		if err := sonic.Unmarshal([]byte(row.BasicStats.String), &docs); err != nil {
			return analysis.MatchAnalysis{}, fmt.Errorf("unmarshal basic stats: %w", err)
		}
		out.BasicStats = basicStatsFromDocs(docs)
	}
	return out, nil
}

func playerScoresToDocs(scores []scoring.PlayerScore) []playerScoreDoc {
	docs := make([]playerScoreDoc, 0, len(scores))
	for _, s := range scores {
		dims := make(map[string]float64, len(s.Dimensions))
		for d, v := range s.Dimensions {
			dims[string(d)] = v
		}
		docs = append(docs, playerScoreDoc{
			Slot:       s.Slot,
			Dimensions: dims,
			Overall:    s.Overall,
			Raw: rawMetricsDoc{
				Kills:             s.Raw.Kills,
				Deaths:            s.Raw.Deaths,
				Assists:           s.Raw.Assists,
				KDA:               s.Raw.KDA,
				GoldEarned:        s.Raw.GoldEarned,
				GoldSpent:         s.Raw.GoldSpent,
				CreepScore:        s.Raw.CreepScore,
				DamageToChampions: s.Raw.DamageToChampions,
				WardsPlaced:       s.Raw.WardsPlaced,
				WardsKilled:       s.Raw.WardsKilled,
				KillParticipation: s.Raw.KillParticipation,
				FightPresence:     s.Raw.FightPresence,
			},
		})
	}
	return docs
}

func playerScoresFromDocs(docs []playerScoreDoc) []scoring.PlayerScore {
	scores := make([]scoring.PlayerScore, 0, len(docs))
	for _, doc := range docs {
		dims := make(map[scoring.Dimension]float64, len(doc.Dimensions))
		for d, v := range doc.Dimensions {
			dims[scoring.Dimension(d)] = v
		}
		scores = append(scores, scoring.PlayerScore{
			Slot:       doc.Slot,
			Dimensions: dims,
			Overall:    doc.Overall,
			Raw: scoring.RawMetrics{
				Kills:             doc.Raw.Kills,
				Deaths:            doc.Raw.Deaths,
				Assists:           doc.Raw.Assists,
				KDA:               doc.Raw.KDA,
				GoldEarned:        doc.Raw.GoldEarned,
				GoldSpent:         doc.Raw.GoldSpent,
				CreepScore:        doc.Raw.CreepScore,
				DamageToChampions: doc.Raw.DamageToChampions,
				WardsPlaced:       doc.Raw.WardsPlaced,
				WardsKilled:       doc.Raw.WardsKilled,
				KillParticipation: doc.Raw.KillParticipation,
				FightPresence:     doc.Raw.FightPresence,
			},
		})
	}
	return scores
}

func basicStatsToDocs(stats []scoring.BasicStats) []basicStatsDoc {
	docs := make([]basicStatsDoc, 0, len(stats))
	for _, s := range stats {
		docs = append(docs, basicStatsDoc{
			Slot:         s.Slot,
			ChampionName: s.ChampionName,
			Kills:        s.Kills,
			Deaths:       s.Deaths,
			Assists:      s.Assists,
			KDA:          s.KDA,
			GoldEarned:   s.GoldEarned,
			CreepScore:   s.CreepScore,
			VisionScore:  s.VisionScore,
			Win:          s.Win,
		})
	}
	return docs
}

func basicStatsFromDocs(docs []basicStatsDoc) []scoring.BasicStats {
	stats := make([]scoring.BasicStats, 0, len(docs))
	for _, doc := range docs {
		stats = append(stats, scoring.BasicStats{
			Slot:         doc.Slot,
			ChampionName: doc.ChampionName,
			Kills:        doc.Kills,
			Deaths:       doc.Deaths,
			Assists:      doc.Assists,
			KDA:          doc.KDA,
			GoldEarned:   doc.GoldEarned,
			CreepScore:   doc.CreepScore,
			VisionScore:  doc.VisionScore,
			Win:          doc.Win,
		})
	}
	return stats
}
