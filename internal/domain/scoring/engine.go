package scoring

import (
	"fmt"
	"math"

	"github.com/riskibarqy/match-insights/internal/domain/gamemode"
	"github.com/riskibarqy/match-insights/internal/domain/match"
)

// Ceilings map raw metrics onto the 0-1 factor range: a participant at or
// above a ceiling earns full credit for that component.
const (
	ceilingKDA           = 10.0
	ceilingDamagePerGold = 2.0
	ceilingGoldPerMin    = 450.0
	ceilingCSPerMin      = 9.0
	ceilingWardsPerMin   = 1.2
)

// Engine computes per-participant dimension scores from validated
// timelines. It performs no I/O; identical inputs produce identical output.
type Engine struct {
	weights Weights
}

func NewEngine(weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	return &Engine{weights: weights}, nil
}

// Compute scores all ten participants of the timeline under the given mode.
// It returns ErrUnsupportedMode for modes that only qualify for the basic
// fallback, and *MalformedTimelineError when the timeline fails structural
// validation.
func (e *Engine) Compute(timeline match.Timeline, mode gamemode.Mode) ([]PlayerScore, error) {
	variant := mode.Variant()
	if variant == gamemode.VariantBasic {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	if err := timeline.Validate(); err != nil {
		return nil, &MalformedTimelineError{MatchID: timeline.MatchID, Reason: err.Error()}
	}

	totals := collectTotals(timeline)
	dims := ApplicableDimensions(mode)
	weights := resolveWeights(e.weights, dims)

	scores := make([]PlayerScore, 0, match.MaxSlot)
	for slot := match.MinSlot; slot <= match.MaxSlot; slot++ {
		pt := totals.bySlot[slot]

		score := PlayerScore{
			Slot:       slot,
			Dimensions: make(map[Dimension]float64, len(dims)),
			Raw:        rawMetrics(pt, totals),
		}
		var overall float64
		for _, d := range dims {
			value := round2(dimensionFactor(d, variant, pt, totals) * 100)
			score.Dimensions[d] = value
			overall += weights[d] * value
		}
		score.Overall = round2(math.Max(0, math.Min(100, overall)))
		scores = append(scores, score)
	}

	return scores, nil
}

func dimensionFactor(d Dimension, variant gamemode.Variant, pt *participantTotals, totals *timelineTotals) float64 {
	switch d {
	case DimensionCombat:
		return combatFactor(pt)
	case DimensionEconomy:
		return economyFactor(pt, totals)
	case DimensionObjective:
		if variant == gamemode.VariantLite {
			return fightPresence(pt, totals)
		}
		return objectiveFactor(pt, totals)
	case DimensionVision:
		if variant == gamemode.VariantLite {
			return fightPresence(pt, totals)
		}
		return visionFactor(pt, totals)
	case DimensionTeam:
		return teamFactor(pt, totals)
	default:
		return 0
	}
}

// combatFactor averages the KDA component with damage efficiency per gold
// spent, each normalized against its ceiling.
func combatFactor(pt *participantTotals) float64 {
	kdaFactor := clamp01(kda(pt) / ceilingKDA)

	goldSpent := pt.finalGoldSpent
	if goldSpent < 1 {
		goldSpent = 1
	}
	damagePerGold := float64(pt.damageToChampions) / float64(goldSpent)
	damageFactor := clamp01(damagePerGold / ceilingDamagePerGold)

	return (kdaFactor + damageFactor) / 2
}

func economyFactor(pt *participantTotals, totals *timelineTotals) float64 {
	goldFactor := clamp01(perMinute(float64(pt.finalGold), totals.minutes) / ceilingGoldPerMin)
	csFactor := clamp01(perMinute(float64(pt.finalCreepScore), totals.minutes) / ceilingCSPerMin)
	return (goldFactor + csFactor) / 2
}

// objectiveFactor is the share of the team's epic objective takes the
// participant was credited on as killer or assister.
func objectiveFactor(pt *participantTotals, totals *timelineTotals) float64 {
	return clamp01(share(pt.objectivesInvolved, totals.teamObjectives[pt.team]))
}

func visionFactor(pt *participantTotals, totals *timelineTotals) float64 {
	return clamp01(perMinute(float64(pt.wardsPlaced), totals.minutes) / ceilingWardsPerMin)
}

// teamFactor averages assist share with fight presence, rewarding
// participants who show up for their team's kills.
func teamFactor(pt *participantTotals, totals *timelineTotals) float64 {
	assistShare := clamp01(share(pt.assists, totals.teamKills[pt.team]))
	return (assistShare + fightPresence(pt, totals)) / 2
}

// fightPresence is the fraction of kill clusters the participant is
// credited in. It doubles as the lite substitute for objective and vision.
func fightPresence(pt *participantTotals, totals *timelineTotals) float64 {
	return clamp01(share(pt.fightsInvolved, totals.totalFights))
}

// kda floors the death denominator at one so flawless games stay finite.
func kda(pt *participantTotals) float64 {
	deaths := pt.deaths
	if deaths < 1 {
		deaths = 1
	}
	return float64(pt.kills+pt.assists) / float64(deaths)
}

func rawMetrics(pt *participantTotals, totals *timelineTotals) RawMetrics {
	return RawMetrics{
		Kills:             pt.kills,
		Deaths:            pt.deaths,
		Assists:           pt.assists,
		KDA:               round2(kda(pt)),
		GoldEarned:        pt.finalGold,
		GoldSpent:         pt.finalGoldSpent,
		CreepScore:        pt.finalCreepScore,
		DamageToChampions: pt.damageToChampions,
		WardsPlaced:       pt.wardsPlaced,
		WardsKilled:       pt.wardsKilled,
		KillParticipation: round2(share(pt.killsInvolved, totals.teamKills[pt.team])),
		FightPresence:     round2(fightPresence(pt, totals)),
	}
}

// share divides part by whole, treating an empty whole as zero contribution
// rather than a division error.
func share(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// perMinute guards zero-length matches so ratios stay finite.
func perMinute(value, minutes float64) float64 {
	if minutes <= 0 {
		return 0
	}
	return value / minutes
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
