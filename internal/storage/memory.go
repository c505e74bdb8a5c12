package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// MemoryIndex keeps fingerprints and song metadata in process memory. It
// satisfies both FingerprintStore and Catalog.
type MemoryIndex struct {
	mu        sync.RWMutex
	buckets   map[int64][]models.DataPoint
	songs     map[uint32]models.Song
	checksums map[string]uint32
	nextID    uint32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		buckets:   make(map[int64][]models.DataPoint),
		songs:     make(map[uint32]models.Song),
		checksums: make(map[string]uint32),
	}
}

func (m *MemoryIndex) Store(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.buckets[e.Hash] = append(m.buckets[e.Hash], e.Point)
	}
	return nil
}

func (m *MemoryIndex) Lookup(ctx context.Context, hash int64) ([]models.DataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := slices.Clone(m.buckets[hash])
	m.mu.RUnlock()
	sortPoints(out)
	return out, nil
}

func (m *MemoryIndex) DeleteFingerprints(ctx context.Context, songID uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, points := range m.buckets {
		kept := slices.DeleteFunc(points, func(dp models.DataPoint) bool { return dp.SongID == songID })
		if len(kept) == 0 {
			delete(m.buckets, hash)
			continue
		}
		m.buckets[hash] = kept
	}
	return nil
}

func (m *MemoryIndex) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, points := range m.buckets {
		n += int64(len(points))
	}
	return n, nil
}

func (m *MemoryIndex) Close() error { return nil }

func (m *MemoryIndex) RegisterSong(ctx context.Context, song models.Song, checksum string) (uint32, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if checksum != "" {
		if id, ok := m.checksums[checksum]; ok {
			return id, false, nil
		}
	}
	m.nextID++
	song.ID = m.nextID
	m.songs[song.ID] = song
	if checksum != "" {
		m.checksums[checksum] = song.ID
	}
	return song.ID, true, nil
}

func (m *MemoryIndex) GetSong(_ context.Context, songID uint32) (models.Song, error) {
	m.mu.RLock()
	song, ok := m.songs[songID]
	m.mu.RUnlock()
	if !ok {
		return models.Song{}, songNotFound(songID)
	}
	return song, nil
}

func (m *MemoryIndex) SongName(ctx context.Context, songID uint32) (string, error) {
	song, err := m.GetSong(ctx, songID)
	if err != nil {
		return "", err
	}
	return song.Name(), nil
}

func (m *MemoryIndex) ListSongs(context.Context) ([]models.Song, error) {
	m.mu.RLock()
	out := make([]models.Song, 0, len(m.songs))
	for _, s := range m.songs {
		out = append(out, s)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b models.Song) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryIndex) RemoveSong(_ context.Context, songID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.songs[songID]; !ok {
		return songNotFound(songID)
	}
	delete(m.songs, songID)
	for sum, id := range m.checksums {
		if id == songID {
			delete(m.checksums, sum)
		}
	}
	return nil
}

func (m *MemoryIndex) CountSongs(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.songs)), nil
}
