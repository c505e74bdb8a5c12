package match

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/bandprint/internal/storage"
	"github.com/himanishpuri/bandprint/pkg/models"
)

// catalog registers songs in order, so they must be numbered from 1.
func catalog(t *testing.T, songs ...models.Song) *storage.MemoryIndex {
	t.Helper()
	idx := storage.NewMemoryIndex()
	for _, s := range songs {
		id, _, err := idx.RegisterSong(context.Background(), s, "")
		if err != nil || id != s.ID {
			t.Fatalf("registering %+v: id=%d err=%v", s, id, err)
		}
	}
	return idx
}

func TestRankOrder(t *testing.T) {
	namer := catalog(t,
		models.Song{ID: 1, Title: "One"},
		models.Song{ID: 2, Title: "Two", Artist: "Duo"},
		models.Song{ID: 3, Title: "Three"},
		models.Song{ID: 4, Title: "Four"},
	)
	scores := []models.MatchScore{
		{SongID: 4, Score: 3},
		{SongID: 1, Score: 10, Offset: 2},
		{SongID: 3, Score: 10},
		{SongID: 2, Score: 20, Offset: 5},
	}

	ranked, err := Rank(context.Background(), scores, namer)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"Two - Duo: with 20 matches.",
		"One: with 10 matches.",
		"Three: with 10 matches.",
		"Four: with 3 matches.",
	}
	if len(ranked) != len(want) {
		t.Fatalf("got %d results, want %d", len(ranked), len(want))
	}
	for i, w := range want {
		if got := ranked[i].String(); got != w {
			t.Errorf("ranked[%d] = %q, want %q", i, got, w)
		}
	}
	if ranked[0].Offset != 5 {
		t.Errorf("offset not carried: %+v", ranked[0])
	}
	if scores[0].SongID != 4 {
		t.Error("Rank reordered its input")
	}
}

func TestRankEmpty(t *testing.T) {
	ranked, err := Rank(context.Background(), nil, catalog(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 0 {
		t.Errorf("expected empty ranking, got %v", ranked)
	}
}

func TestRankNotFound(t *testing.T) {
	namer := catalog(t, models.Song{ID: 1, Title: "One"})
	scores := []models.MatchScore{{SongID: 1, Score: 4}, {SongID: 2, Score: 3}}

	_, err := Rank(context.Background(), scores, namer)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRankDeterministic(t *testing.T) {
	namer := catalog(t, models.Song{ID: 1, Title: "a"}, models.Song{ID: 2, Title: "b"}, models.Song{ID: 3, Title: "c"})
	first := []models.MatchScore{{SongID: 3, Score: 1}, {SongID: 1, Score: 1}, {SongID: 2, Score: 1}}
	second := []models.MatchScore{{SongID: 2, Score: 1}, {SongID: 3, Score: 1}, {SongID: 1, Score: 1}}

	a, _ := Rank(context.Background(), first, namer)
	b, _ := Rank(context.Background(), second, namer)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("rankings differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
	if a[0].SongID != 1 {
		t.Errorf("tie should favour lowest song ID, got %d", a[0].SongID)
	}
}

func TestProminence(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   []float64
	}{
		{"empty", nil, []float64{}},
		{"single", []int{5}, []float64{0}},
		{"flat", []int{3, 3, 3}, []float64{0, 0, 0}},
		// mean 2, sample std 1
		{"spread", []int{1, 2, 3}, []float64{-1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prominence(tt.scores)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Prominence[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
