package match

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/himanishpuri/bandprint/internal/fingerprint"
	"github.com/himanishpuri/bandprint/internal/storage"
	"github.com/himanishpuri/bandprint/pkg/models"
)

type failingIndex struct{ err error }

func (f failingIndex) Lookup(context.Context, int64) ([]models.DataPoint, error) {
	return nil, f.err
}

func mustHash(t *testing.T, row fingerprint.KeyPoints) int64 {
	t.Helper()
	h, err := fingerprint.Hash(row, fingerprint.DefaultFuzzFactor)
	if err != nil {
		t.Fatalf("Hash(%v): %v", row, err)
	}
	return h
}

func put(t *testing.T, idx *storage.MemoryIndex, hash int64, dp models.DataPoint) {
	t.Helper()
	if err := idx.Store(context.Background(), []storage.Entry{{Hash: hash, Point: dp}}); err != nil {
		t.Fatal(err)
	}
}

func TestAggregateSingleMatchOffset(t *testing.T) {
	idx := storage.NewMemoryIndex()
	// stored at slice 10 with key points that only agree after quantization
	stored := fingerprint.KeyPoints{43, 80, 120, 180, 299}
	put(t, idx, mustHash(t, stored), models.DataPoint{SongID: 1, Time: 10})

	rows := make([]fingerprint.KeyPoints, 4)
	for i := range rows {
		rows[i] = fingerprint.KeyPoints{0, 0, 0, 0, 0}
	}
	rows[3] = fingerprint.KeyPoints{42, 81, 121, 181, 250}

	for _, workers := range []int{1, 2, 4} {
		hs, err := NewAggregator(idx, fingerprint.DefaultFuzzFactor, workers).Aggregate(context.Background(), rows)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		want := Histograms{1: {7: 1}}
		if !reflect.DeepEqual(hs, want) {
			t.Errorf("workers=%d: histograms = %v, want %v", workers, hs, want)
		}
	}
}

func TestAggregateOffsetIsAbsolute(t *testing.T) {
	idx := storage.NewMemoryIndex()
	row := fingerprint.KeyPoints{42, 81, 121, 181, 250}
	h := mustHash(t, row)
	// query slice 5 against stored slices 2 and 8: both three slices away
	put(t, idx, h, models.DataPoint{SongID: 1, Time: 2})
	put(t, idx, h, models.DataPoint{SongID: 1, Time: 8})

	rows := make([]fingerprint.KeyPoints, 6)
	for i := range rows {
		rows[i] = fingerprint.KeyPoints{0, 0, 0, 0, 0}
	}
	rows[5] = row

	scores, err := NewAggregator(idx, fingerprint.DefaultFuzzFactor, 1).Score(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.MatchScore{{SongID: 1, Score: 2, Offset: 3}}
	if !reflect.DeepEqual(scores, want) {
		t.Errorf("scores = %v, want %v", scores, want)
	}
}

func TestAggregateUnknownHash(t *testing.T) {
	idx := storage.NewMemoryIndex()
	rows := []fingerprint.KeyPoints{{42, 81, 121, 181, 250}}

	hs, err := NewAggregator(idx, fingerprint.DefaultFuzzFactor, 1).Aggregate(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 0 {
		t.Errorf("expected no histograms, got %v", hs)
	}
	if s := hs.Scores(); len(s) != 0 {
		t.Errorf("expected no scores, got %v", s)
	}
}

func TestAggregateNoRows(t *testing.T) {
	hs, err := NewAggregator(storage.NewMemoryIndex(), 2, 4).Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 0 {
		t.Errorf("expected empty histograms, got %v", hs)
	}
}

func TestAggregateIndexError(t *testing.T) {
	boom := errors.New("disk on fire")
	rows := []fingerprint.KeyPoints{{42, 81, 121, 181, 250}, {44, 90, 130, 200, 260}, {50, 95, 140, 210, 270}}

	for _, workers := range []int{1, 3} {
		_, err := NewAggregator(failingIndex{boom}, 2, workers).Aggregate(context.Background(), rows)
		if !errors.Is(err, models.ErrIndex) {
			t.Errorf("workers=%d: expected ErrIndex, got %v", workers, err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("workers=%d: expected cause to be kept, got %v", workers, err)
		}
	}
}

func TestAggregateShortRow(t *testing.T) {
	rows := []fingerprint.KeyPoints{{42, 81, 121}}
	_, err := NewAggregator(storage.NewMemoryIndex(), 2, 1).Aggregate(context.Background(), rows)
	if !errors.Is(err, models.ErrInput) {
		t.Errorf("expected ErrInput, got %v", err)
	}
}

func TestAggregateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows := []fingerprint.KeyPoints{{42, 81, 121, 181, 250}, {44, 90, 130, 200, 260}}

	for _, workers := range []int{1, 2} {
		_, err := NewAggregator(storage.NewMemoryIndex(), 2, workers).Aggregate(ctx, rows)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

// randomIndex builds an index of nSongs songs with random key point rows
// and returns it together with the rows of song 1.
func randomIndex(t *testing.T, nSongs, nSlices int, seed int64) (*storage.MemoryIndex, []fingerprint.KeyPoints) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	idx := storage.NewMemoryIndex()
	var first []fingerprint.KeyPoints
	for song := uint32(1); song <= uint32(nSongs); song++ {
		for slice := range nSlices {
			row := fingerprint.KeyPoints{
				40 + rng.Intn(40),
				80 + rng.Intn(40),
				120 + rng.Intn(60),
				180 + rng.Intn(120),
				180 + rng.Intn(120),
			}
			put(t, idx, mustHash(t, row), models.DataPoint{SongID: song, Time: slice})
			if song == 1 {
				first = append(first, row)
			}
		}
	}
	return idx, first
}

func TestAggregateWorkersAgree(t *testing.T) {
	idx, rows := randomIndex(t, 5, 64, 7)
	query := rows[10:50]

	want, err := NewAggregator(idx, 2, 1).Aggregate(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{2, 3, 7, 40, 100} {
		got, err := NewAggregator(idx, 2, workers).Aggregate(context.Background(), query)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("workers=%d: histograms differ from sequential run", workers)
		}
	}
}

func TestAggregateFindsSource(t *testing.T) {
	idx, rows := randomIndex(t, 5, 64, 11)
	query := rows[20:40]

	scores, err := NewAggregator(idx, 2, 4).Score(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	SortScores(scores)
	if len(scores) == 0 || scores[0].SongID != 1 {
		t.Fatalf("expected song 1 on top, got %v", scores)
	}
	// query slice t is stored slice 20+t
	if scores[0].Score < len(query) || scores[0].Offset != 20 {
		t.Errorf("top score = %+v, want score >= %d at offset 20", scores[0], len(query))
	}
}
