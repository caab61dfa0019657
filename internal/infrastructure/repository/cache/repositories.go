package cache

import (
	"context"

	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
	basecache "github.com/riskibarqy/match-insights/internal/platform/cache"
)

// AnalysisRepository puts a read-through cache in front of the persistence
// gateway. Save invalidates the match key so a cached not-found does not
// outlive the write.
type AnalysisRepository struct {
	next  analysis.Repository
	cache *basecache.Store
}

func NewAnalysisRepository(next analysis.Repository, cache *basecache.Store) *AnalysisRepository {
	return &AnalysisRepository{next: next, cache: cache}
}

func (r *AnalysisRepository) GetByMatchID(ctx context.Context, matchID string) (analysis.MatchAnalysis, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, analysisKey(matchID), func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByMatchID(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return cachedAnalysisByMatch{value: cloneAnalysis(item), exists: exists}, nil
	})
	if err != nil {
		return analysis.MatchAnalysis{}, false, err
	}

	cached, _ := v.(cachedAnalysisByMatch)
	return cloneAnalysis(cached.value), cached.exists, nil
}

func (r *AnalysisRepository) Save(ctx context.Context, a analysis.MatchAnalysis) (bool, error) {
	stored, err := r.next.Save(ctx, a)
	if err != nil {
		return false, err
	}

	r.cache.Delete(ctx, analysisKey(a.MatchID))
	return stored, nil
}

type cachedAnalysisByMatch struct {
	value  analysis.MatchAnalysis
	exists bool
}

// cloneAnalysis copies the slices and dimension maps so cached values stay
// isolated from callers that mutate what they read.
func cloneAnalysis(item analysis.MatchAnalysis) analysis.MatchAnalysis {
	out := item
	if item.Scores != nil {
		out.Scores = make([]scoring.PlayerScore, len(item.Scores))
		for i, score := range item.Scores {
			dims := make(map[scoring.Dimension]float64, len(score.Dimensions))
			for d, v := range score.Dimensions {
				dims[d] = v
			}
			score.Dimensions = dims
			out.Scores[i] = score
		}
	}
	out.BasicStats = append([]scoring.BasicStats(nil), item.BasicStats...)
	return out
}

func analysisKey(matchID string) string {
	return "analysis:match:" + matchID
}
