package fingerprint

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/bandprint/pkg/models"
	"github.com/himanishpuri/bandprint/pkg/utils"
)

// Frame is one time slice of the spectral transform, indexed by frequency bin.
type Frame []complex128

// KeyPoints holds, for one frame, the loudest bin of every band. An entry is
// 0 when no bin of that band had a positive magnitude.
type KeyPoints []int

// IsSilent reports whether the row carries no key point at all.
func (k KeyPoints) IsSilent() bool {
	for _, p := range k {
		if p != 0 {
			return false
		}
	}
	return true
}

// Magnitude is the log-compressed magnitude of one coefficient. The +1 keeps
// it finite and non-negative for silent bins.
func Magnitude(c complex128) float64 {
	re, im := real(c), imag(c)
	return math.Log(math.Sqrt(re*re+im*im) + 1)
}

// ExtractKeyPoints returns one KeyPoints row per frame.
func ExtractKeyPoints(frames []Frame, bands Bands) ([]KeyPoints, error) {
	if bands.Len() == 0 {
		return nil, fmt.Errorf("%w: band table is empty", models.ErrConfiguration)
	}

	rows := make([]KeyPoints, len(frames))
	for t, frame := range frames {
		row, err := frameKeyPoints(frame, bands)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", t, err)
		}
		rows[t] = row
	}
	return rows, nil
}

// ExtractKeyPointsParallel is ExtractKeyPoints with the frames split across
// workers. Rows come back in frame order.
func ExtractKeyPointsParallel(ctx context.Context, frames []Frame, bands Bands, workers int) ([]KeyPoints, error) {
	if workers <= 1 || len(frames) < 2 {
		return ExtractKeyPoints(frames, bands)
	}
	if bands.Len() == 0 {
		return nil, fmt.Errorf("%w: band table is empty", models.ErrConfiguration)
	}

	rows := make([]KeyPoints, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	for _, span := range utils.Partition(len(frames), workers) {
		g.Go(func() error {
			for t := span.Start; t < span.End; t++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				row, err := frameKeyPoints(frames[t], bands)
				if err != nil {
					return fmt.Errorf("frame %d: %w", t, err)
				}
				rows[t] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func frameKeyPoints(frame Frame, bands Bands) (KeyPoints, error) {
	lo, hi := bands.Low(), bands.High()
	if len(frame) < hi {
		return nil, fmt.Errorf("%w: frame has %d bins, need at least %d", models.ErrInput, len(frame), hi)
	}

	row := make(KeyPoints, bands.Len())
	loudest := make([]float64, bands.Len())
	band := 0
	for bin := lo; bin < hi; bin++ {
		// bins increase, so the band index only moves forward
		for bands.bounds[band] < bin {
			band++
		}
		mag := Magnitude(frame[bin])
		if mag > loudest[band] {
			loudest[band] = mag
			row[band] = bin
		}
	}
	return row, nil
}
