package scoring

import "github.com/riskibarqy/match-insights/internal/domain/gamemode"

// ApplicableDimensions reports which dimensions carry signal for a mode.
// ARAM has no warding mechanic, so vision is excluded up front and its
// weight redistributed rather than scored as zero. The other lite modes
// keep all five dimensions; the engine substitutes the fight-cluster
// heuristic where the full formulas do not hold.
func ApplicableDimensions(mode gamemode.Mode) []Dimension {
	switch mode {
	case gamemode.ModeClassic, gamemode.ModeURF, gamemode.ModeOneForAll:
		return []Dimension{
			DimensionCombat,
			DimensionEconomy,
			DimensionObjective,
			DimensionVision,
			DimensionTeam,
		}
	case gamemode.ModeARAM:
		return []Dimension{
			DimensionCombat,
			DimensionEconomy,
			DimensionObjective,
			DimensionTeam,
		}
	default:
		return nil
	}
}

// resolveWeights renormalizes w over the applicable dimensions so that the
// weighted composite still spans the full 0-100 range.
func resolveWeights(w Weights, dims []Dimension) map[Dimension]float64 {
	out := make(map[Dimension]float64, len(dims))
	if len(dims) == 0 {
		return out
	}

	var sum float64
	for _, d := range dims {
		sum += w.valueOf(d)
	}
	if sum <= 0 {
		share := 1 / float64(len(dims))
		for _, d := range dims {
			out[d] = share
		}
		return out
	}

	for _, d := range dims {
		out[d] = w.valueOf(d) / sum
	}
	return out
}
