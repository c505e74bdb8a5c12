package fingerprint

import (
	"fmt"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// DefaultBoundaries splits the scanned bins into a bass band (up to 120) and
// the mid tones (120 to 300) that carry vocals and most instruments.
var DefaultBoundaries = []int{40, 80, 120, 180, 300}

// Bands is a strictly increasing table of frequency bin boundaries. Band i
// holds the bins b with boundaries[i-1] < b <= boundaries[i]. The lowest and
// highest boundaries only limit the scan: bins below the first or at/above
// the last are never looked at.
type Bands struct {
	bounds []int
}

// NewBands validates and copies a boundary table.
func NewBands(boundaries []int) (Bands, error) {
	if len(boundaries) == 0 {
		return Bands{}, fmt.Errorf("%w: band table is empty", models.ErrConfiguration)
	}
	if boundaries[0] < 0 {
		return Bands{}, fmt.Errorf("%w: band boundary %d is negative", models.ErrConfiguration, boundaries[0])
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return Bands{}, fmt.Errorf("%w: band boundaries must be strictly increasing (%d then %d)",
				models.ErrConfiguration, boundaries[i-1], boundaries[i])
		}
	}

	bounds := make([]int, len(boundaries))
	copy(bounds, boundaries)
	return Bands{bounds: bounds}, nil
}

// DefaultBands returns the table built from DefaultBoundaries.
func DefaultBands() Bands {
	b, err := NewBands(DefaultBoundaries)
	if err != nil {
		panic(err)
	}
	return b
}

// Len is the number of boundaries, which is also the length of every key point row.
func (b Bands) Len() int { return len(b.bounds) }

// Low is the first scanned bin.
func (b Bands) Low() int { return b.bounds[0] }

// High is one past the last scanned bin. Frames need at least High coefficients.
func (b Bands) High() int { return b.bounds[len(b.bounds)-1] }

// Boundaries returns a copy of the table.
func (b Bands) Boundaries() []int {
	out := make([]int, len(b.bounds))
	copy(out, b.bounds)
	return out
}

// Index returns the smallest i with boundaries[i] >= bin. bin must not
// exceed High.
func (b Bands) Index(bin int) int {
	i := 0
	for b.bounds[i] < bin {
		i++
	}
	return i
}
