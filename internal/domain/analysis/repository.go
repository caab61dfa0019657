package analysis

import "context"

// Repository persists completed analyses keyed by match id.
type Repository interface {
	// GetByMatchID returns the stored analysis and whether one exists.
	GetByMatchID(ctx context.Context, matchID string) (MatchAnalysis, bool, error)

	// Save stores the analysis unless a row for the match already exists.
	// The first writer wins: Save reports whether this call wrote the row,
	// and a duplicate leaves the stored result untouched without error.
	Save(ctx context.Context, a MatchAnalysis) (bool, error)
}
