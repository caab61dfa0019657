package scoring

import (
	"fmt"
	"math"
)

// EngineVersion tags every persisted analysis. Bump it when formula or
// weight changes would make stored scores incomparable with fresh ones.
const EngineVersion = "v1"

type Dimension string

const (
	DimensionCombat    Dimension = "combat"
	DimensionEconomy   Dimension = "economy"
	DimensionObjective Dimension = "objective"
	DimensionVision    Dimension = "vision"
	DimensionTeam      Dimension = "team"
)

// AllDimensions lists every dimension in presentation order.
var AllDimensions = []Dimension{
	DimensionCombat,
	DimensionEconomy,
	DimensionObjective,
	DimensionVision,
	DimensionTeam,
}

// Weights distribute the composite score across dimensions. They must be
// non-negative and sum to 1. When a mode rules some dimensions out, the
// remaining weights are renormalized so the composite keeps its 0-100 range.
type Weights struct {
	Combat    float64
	Economy   float64
	Objective float64
	Vision    float64
	Team      float64
}

func DefaultWeights() Weights {
	return Weights{
		Combat:    0.30,
		Economy:   0.25,
		Objective: 0.25,
		Vision:    0.10,
		Team:      0.10,
	}
}

func (w Weights) Validate() error {
	for _, d := range AllDimensions {
		if w.valueOf(d) < 0 {
			return fmt.Errorf("weight for %s cannot be negative", d)
		}
	}
	if sum := w.sum(); math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %.6f", sum)
	}
	return nil
}

func (w Weights) sum() float64 {
	return w.Combat + w.Economy + w.Objective + w.Vision + w.Team
}

func (w Weights) valueOf(d Dimension) float64 {
	switch d {
	case DimensionCombat:
		return w.Combat
	case DimensionEconomy:
		return w.Economy
	case DimensionObjective:
		return w.Objective
	case DimensionVision:
		return w.Vision
	case DimensionTeam:
		return w.Team
	default:
		return 0
	}
}

// PlayerScore is the scored output for one participant. Dimensions holds
// only the dimensions applicable to the match's mode, each on a 0-100 scale.
// Overall is the weighted composite over those dimensions.
type PlayerScore struct {
	Slot       int
	Dimensions map[Dimension]float64
	Overall    float64
	Raw        RawMetrics
}

// RawMetrics carries the unscaled inputs behind a PlayerScore, for
// presentation and debugging.
type RawMetrics struct {
	Kills             int
	Deaths            int
	Assists           int
	KDA               float64
	GoldEarned        int
	GoldSpent         int
	CreepScore        int
	DamageToChampions int
	WardsPlaced       int
	WardsKilled       int
	KillParticipation float64
	FightPresence     float64
}

// BasicStats is the degraded output for modes the engine cannot score.
type BasicStats struct {
	Slot         int
	ChampionName string
	Kills        int
	Deaths       int
	Assists      int
	KDA          float64
	GoldEarned   int
	CreepScore   int
	VisionScore  int
	Win          bool
}
