package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// Entry is one hash bucket entry to be written to a fingerprint store.
type Entry struct {
	Hash  int64
	Point models.DataPoint
}

// FingerprintStore is a hash to data point multimap. Lookup results are
// ordered by song ID and then time. An unknown hash returns an empty slice.
type FingerprintStore interface {
	Store(ctx context.Context, entries []Entry) error
	Lookup(ctx context.Context, hash int64) ([]models.DataPoint, error)
	DeleteFingerprints(ctx context.Context, songID uint32) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Catalog holds song metadata. Songs are deduplicated by content checksum:
// registering a known checksum returns the existing ID with created false.
type Catalog interface {
	RegisterSong(ctx context.Context, song models.Song, checksum string) (id uint32, created bool, err error)
	GetSong(ctx context.Context, songID uint32) (models.Song, error)
	SongName(ctx context.Context, songID uint32) (string, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	RemoveSong(ctx context.Context, songID uint32) error
	CountSongs(ctx context.Context) (int64, error)
	Close() error
}

func sortPoints(points []models.DataPoint) {
	slices.SortFunc(points, func(a, b models.DataPoint) int {
		if c := cmp.Compare(a.SongID, b.SongID); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
}

func songNotFound(songID uint32) error {
	return fmt.Errorf("%w: song %d", models.ErrNotFound, songID)
}
