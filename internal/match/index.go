package match

import (
	"context"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// Index is the read side of the fingerprint index. Implementations must be
// safe for concurrent Lookup calls. An unknown hash returns no data points
// and no error.
type Index interface {
	Lookup(ctx context.Context, hash int64) ([]models.DataPoint, error)
}

// SongNamer resolves a song ID to its display name. Unknown IDs fail with an
// error wrapping models.ErrNotFound.
type SongNamer interface {
	SongName(ctx context.Context, songID uint32) (string, error)
}
