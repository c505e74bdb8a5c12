package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"
	"testing"

	"github.com/OneOfOne/xxhash"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// backends opens every FingerprintStore implementation on fresh storage.
func backends(t *testing.T) map[string]FingerprintStore {
	t.Helper()
	dir := t.TempDir()

	db, err := NewDBClientWithPath(filepath.Join(dir, "fp.sqlite3"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	bdg, err := OpenBadgerIndex(filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("badger: %v", err)
	}
	mem, err := OpenBadgerIndex("")
	if err != nil {
		t.Fatalf("badger in-memory: %v", err)
	}

	stores := map[string]FingerprintStore{
		"sqlite":       db,
		"badger":       bdg,
		"badger-mem":   mem,
		"memory-index": NewMemoryIndex(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreLookup(t *testing.T) {
	ctx := context.Background()
	entries := []Entry{
		{Hash: 7, Point: models.DataPoint{SongID: 2, Time: 30}},
		{Hash: 7, Point: models.DataPoint{SongID: 1, Time: 10}},
		{Hash: 7, Point: models.DataPoint{SongID: 2, Time: 5}},
		{Hash: 8, Point: models.DataPoint{SongID: 1, Time: 11}},
		{Hash: 8000000000, Point: models.DataPoint{SongID: 3, Time: 0}},
	}

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Store(ctx, entries); err != nil {
				t.Fatalf("Store: %v", err)
			}

			tests := []struct {
				hash int64
				want []models.DataPoint
			}{
				{7, []models.DataPoint{{SongID: 1, Time: 10}, {SongID: 2, Time: 5}, {SongID: 2, Time: 30}}},
				{8, []models.DataPoint{{SongID: 1, Time: 11}}},
				{8000000000, []models.DataPoint{{SongID: 3, Time: 0}}},
			}
			for _, tt := range tests {
				got, err := store.Lookup(ctx, tt.hash)
				if err != nil {
					t.Fatalf("Lookup(%d): %v", tt.hash, err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("Lookup(%d) = %v, want %v", tt.hash, got, tt.want)
				}
			}

			got, err := store.Lookup(ctx, 999)
			if err != nil {
				t.Fatalf("Lookup of unknown hash: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("Lookup of unknown hash = %v, want empty", got)
			}

			n, err := store.Count(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if n != int64(len(entries)) {
				t.Errorf("Count = %d, want %d", n, len(entries))
			}
		})
	}
}

func TestStoreDeleteFingerprints(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Store(ctx, []Entry{
				{Hash: 1, Point: models.DataPoint{SongID: 1, Time: 0}},
				{Hash: 1, Point: models.DataPoint{SongID: 2, Time: 0}},
				{Hash: 2, Point: models.DataPoint{SongID: 2, Time: 1}},
			})
			if err != nil {
				t.Fatal(err)
			}
			if err := store.DeleteFingerprints(ctx, 2); err != nil {
				t.Fatalf("DeleteFingerprints: %v", err)
			}

			got, _ := store.Lookup(ctx, 1)
			if want := []models.DataPoint{{SongID: 1, Time: 0}}; !reflect.DeepEqual(got, want) {
				t.Errorf("Lookup(1) = %v, want %v", got, want)
			}
			got, _ = store.Lookup(ctx, 2)
			if len(got) != 0 {
				t.Errorf("Lookup(2) = %v, want empty", got)
			}
		})
	}
}

func TestStoreConcurrentLookups(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var entries []Entry
			for h := range 50 {
				entries = append(entries, Entry{Hash: int64(h), Point: models.DataPoint{SongID: 1, Time: h}})
			}
			if err := store.Store(ctx, entries); err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			for w := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for h := w; h < 50; h += 8 {
						got, err := store.Lookup(ctx, int64(h))
						if err != nil {
							t.Errorf("Lookup(%d): %v", h, err)
							return
						}
						if len(got) != 1 || got[0].Time != h {
							t.Errorf("Lookup(%d) = %v", h, got)
						}
					}
				}()
			}
			wg.Wait()
		})
	}
}

func TestBadgerIndexReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "idx")

	idx, err := OpenBadgerIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Store(ctx, []Entry{{Hash: 42, Point: models.DataPoint{SongID: 9, Time: 4}}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = OpenBadgerIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	got, err := idx.Lookup(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if want := []models.DataPoint{{SongID: 9, Time: 4}}; !reflect.DeepEqual(got, want) {
		t.Errorf("after reopen Lookup = %v, want %v", got, want)
	}
}

func TestMemoryIndexCatalog(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()

	id, created, err := m.RegisterSong(ctx, models.Song{Title: "A"}, "sum")
	if err != nil || !created || id != 1 {
		t.Fatalf("RegisterSong = %d, %v, %v", id, created, err)
	}
	again, created, _ := m.RegisterSong(ctx, models.Song{Title: "B"}, "sum")
	if again != id || created {
		t.Errorf("duplicate RegisterSong = %d, %v; want %d, false", again, created, id)
	}

	if err := m.RemoveSong(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveSong(ctx, id); err == nil {
		t.Error("expected error removing a missing song")
	}
	// checksum is free again once the song is gone
	if _, created, _ := m.RegisterSong(ctx, models.Song{Title: "A"}, "sum"); !created {
		t.Error("expected re-registration after removal")
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("some pcm"))
	if len(a) != 16 {
		t.Errorf("Checksum length = %d, want 16", len(a))
	}
	if a != Checksum([]byte("some pcm")) {
		t.Error("Checksum is not deterministic")
	}
	if a == Checksum([]byte("other pcm")) {
		t.Error("different content produced the same checksum")
	}

	for _, raw := range [][]byte{nil, {0}, []byte("x"), make([]byte, 4096)} {
		sum := Checksum(raw)
		if len(sum) != 16 {
			t.Errorf("Checksum(%d bytes) = %q, want 16 hex digits", len(raw), sum)
		}
		if v, err := strconv.ParseUint(sum, 16, 64); err != nil || v != xxhash.Checksum64(raw) {
			t.Errorf("Checksum(%d bytes) = %q does not encode %x", len(raw), sum, xxhash.Checksum64(raw))
		}
	}
}
