package match

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// Rank orders scores by score descending, breaking ties by ascending song
// ID, and resolves every song name through namer. A song without metadata
// fails the whole call with models.ErrNotFound.
func Rank(ctx context.Context, scores []models.MatchScore, namer SongNamer) ([]models.RankedMatch, error) {
	sorted := slices.Clone(scores)
	SortScores(sorted)

	ranked := make([]models.RankedMatch, 0, len(sorted))
	for _, s := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := namer.SongName(ctx, s.SongID)
		if err != nil {
			return nil, fmt.Errorf("resolving song %d: %w", s.SongID, err)
		}
		ranked = append(ranked, models.RankedMatch{
			SongID: s.SongID,
			Name:   name,
			Score:  s.Score,
			Offset: s.Offset,
		})
	}
	return ranked, nil
}

// SortScores sorts in place: score descending, then song ID ascending.
func SortScores(scores []models.MatchScore) {
	slices.SortFunc(scores, func(a, b models.MatchScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.SongID, b.SongID)
	})
}

// Prominence returns the standard score of each value among all of them,
// in input order. Fewer than two values, or no spread, gives all zeros.
func Prominence(scores []int) []float64 {
	out := make([]float64, len(scores))
	if len(scores) < 2 {
		return out
	}

	xs := make([]float64, len(scores))
	for i, s := range scores {
		xs[i] = float64(s)
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if std == 0 {
		return out
	}
	for i, x := range xs {
		out[i] = stat.StdScore(x, mean, std)
	}
	return out
}
