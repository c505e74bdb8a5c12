package fingerprint

import (
	"fmt"

	"github.com/himanishpuri/bandprint/pkg/models"
)

const (
	// HashWidth is the number of leading key points folded into a hash. The
	// top band is left out: it is the least stable one under noise.
	HashWidth = 4

	// DefaultFuzzFactor absorbs bins that land one apart because of noise.
	DefaultFuzzFactor = 2
)

// Positional weights. They do not overlap as long as p0 < 100 and
// p1..p3 < 1000, which holds for every bin of DefaultBoundaries.
var hashWeights = [HashWidth]int64{1, 100, 100000, 100000000}

// Hash folds the first HashWidth key points of a row into one index key.
// Each point is rounded down to a multiple of fuzz before weighting, so
// points in the same bucket produce the same hash.
func Hash(points KeyPoints, fuzz int) (int64, error) {
	if fuzz < 1 {
		return 0, fmt.Errorf("%w: fuzz factor must be at least 1, got %d", models.ErrConfiguration, fuzz)
	}
	if len(points) < HashWidth {
		return 0, fmt.Errorf("%w: need %d key points to hash, got %d", models.ErrInput, HashWidth, len(points))
	}

	f := int64(fuzz)
	var h int64
	for i := 0; i < HashWidth; i++ {
		p := int64(points[i])
		h += (p - p%f) * hashWeights[i]
	}
	return h, nil
}
