package postgres

import (
	"database/sql"
	"time"
)

type matchAnalysisTableModel struct {
	ID              int64          `db:"id"`
	MatchID         string         `db:"match_id"`
	Region          string         `db:"region"`
	QueueID         int            `db:"queue_id"`
	Mode            string         `db:"mode"`
	Variant         string         `db:"variant"`
	EngineVersion   string         `db:"engine_version"`
	DurationSeconds int64          `db:"duration_seconds"`
	Scores          sql.NullString `db:"scores"`
	BasicStats      sql.NullString `db:"basic_stats"`
	RequestedBy     string         `db:"requested_by"`
	CreatedAt       time.Time      `db:"created_at"`
}

type matchAnalysisInsertModel struct {
	MatchID         string    `db:"match_id"`
	Region          string    `db:"region"`
	QueueID         int       `db:"queue_id"`
	Mode            string    `db:"mode"`
	Variant         string    `db:"variant"`
	EngineVersion   string    `db:"engine_version"`
	DurationSeconds int64     `db:"duration_seconds"`
	Scores          *string   `db:"scores"`
	BasicStats      *string   `db:"basic_stats"`
	RequestedBy     string    `db:"requested_by"`
	CreatedAt       time.Time `db:"created_at"`
}

// playerScoreDoc is the JSONB shape of one scored participant. It is part of
// the stored format, so field renames need a data migration.
type playerScoreDoc struct {
	Slot       int                `json:"slot"`
	Dimensions map[string]float64 `json:"dimensions"`
	Overall    float64            `json:"overall"`
	Raw        rawMetricsDoc      `json:"raw"`
}

type rawMetricsDoc struct {
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

type basicStatsDoc struct {
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
