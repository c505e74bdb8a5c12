package match

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/bandprint/internal/fingerprint"
	"github.com/himanishpuri/bandprint/pkg/models"
	"github.com/himanishpuri/bandprint/pkg/utils"
)

// Aggregator turns a query's key point rows into per-song offset histograms
// by looking every row's hash up in the index.
//
// A true match piles up at one offset (the real alignment) even though each
// single lookup is noisy; unrelated songs spread thin over many offsets.
type Aggregator struct {
	index   Index
	fuzz    int
	workers int
}

// NewAggregator returns an aggregator hashing with the given fuzz factor.
// With workers > 1 the time range is split into that many contiguous
// partitions, each with its own histograms and its own outstanding lookup.
func NewAggregator(index Index, fuzz, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{index: index, fuzz: fuzz, workers: workers}
}

// Aggregate scans rows in time order (row i is time slice i). Silent rows
// are skipped. An index failure aborts the whole call with models.ErrIndex.
func (a *Aggregator) Aggregate(ctx context.Context, rows []fingerprint.KeyPoints) (Histograms, error) {
	if a.workers == 1 || len(rows) < 2 {
		hs := make(Histograms)
		if err := a.fold(ctx, rows, 0, hs); err != nil {
			return nil, err
		}
		return hs, nil
	}

	spans := utils.Partition(len(rows), a.workers)
	partials := make([]Histograms, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	for i, span := range spans {
		g.Go(func() error {
			hs := make(Histograms)
			if err := a.fold(gctx, rows[span.Start:span.End], span.Start, hs); err != nil {
				return err
			}
			partials[i] = hs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(Histograms)
	for _, hs := range partials {
		merged.Merge(hs)
	}
	return merged, nil
}

// Score runs Aggregate and reduces the histograms to one score per song.
func (a *Aggregator) Score(ctx context.Context, rows []fingerprint.KeyPoints) ([]models.MatchScore, error) {
	hs, err := a.Aggregate(ctx, rows)
	if err != nil {
		return nil, err
	}
	return hs.Scores(), nil
}

// fold accumulates rows into hs. base is the time slice of rows[0].
func (a *Aggregator) fold(ctx context.Context, rows []fingerprint.KeyPoints, base int, hs Histograms) error {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if row.IsSilent() {
			continue
		}

		t := base + i
		hash, err := fingerprint.Hash(row, a.fuzz)
		if err != nil {
			return fmt.Errorf("slice %d: %w", t, err)
		}

		points, err := a.index.Lookup(ctx, hash)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: lookup of hash %d at slice %d: %w", models.ErrIndex, hash, t, err)
		}

		for _, dp := range points {
			hs.Add(dp.SongID, offset(t, dp.Time))
		}
	}
	return nil
}

// offset is the absolute distance between a query slice and an indexed
// slice. Alignments equally far before and after the query start share a
// bucket.
func offset(queryTime, dbTime int) int {
	if d := queryTime - dbTime; d >= 0 {
		return d
	}
	return dbTime - queryTime
}
