package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/match-insights/internal/domain/analysis"
)

// AnalysisRepository keeps match analyses in process memory. It mirrors the
// postgres repository's semantics so local runs and tests behave the same,
// including the first-writer-wins guarantee on Save.
type AnalysisRepository struct {
	mu    sync.RWMutex
	items map[string]analysis.MatchAnalysis
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{
		items: make(map[string]analysis.MatchAnalysis),
	}
}

func (r *AnalysisRepository) GetByMatchID(_ context.Context, matchID string) (analysis.MatchAnalysis, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[matchID]
	if !ok {
		return analysis.MatchAnalysis{}, false, nil
	}

	return a, true, nil
}

func (r *AnalysisRepository) Save(_ context.Context, a analysis.MatchAnalysis) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[a.MatchID]; exists {
		return false, nil
	}

	r.items[a.MatchID] = a
	return true, nil
}
