package scoring

import (
	"sort"

	"github.com/riskibarqy/match-insights/internal/domain/match"
)

// BasicStatsFromSummary produces the degraded per-participant output for
// modes the engine cannot score. It needs no timeline, only the final-stats
// snapshot, and cannot fail on any validated summary.
func BasicStatsFromSummary(summary match.Summary) []BasicStats {
	out := make([]BasicStats, 0, len(summary.Participants))
	for _, p := range summary.Participants {
		deaths := p.Deaths
		if deaths < 1 {
			deaths = 1
		}
		out = append(out, BasicStats{
			Slot:         p.Slot,
			ChampionName: p.ChampionName,
			Kills:        p.Kills,
			Deaths:       p.Deaths,
			Assists:      p.Assists,
			KDA:          round2(float64(p.Kills+p.Assists) / float64(deaths)),
			GoldEarned:   p.GoldEarned,
			CreepScore:   p.CreepScore,
			VisionScore:  p.VisionScore,
			Win:          p.Win,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}
