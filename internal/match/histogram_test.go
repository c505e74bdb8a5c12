package match

import (
	"reflect"
	"testing"

	"github.com/himanishpuri/bandprint/pkg/models"
)

func TestHistogramPeak(t *testing.T) {
	tests := []struct {
		name       string
		h          Histogram
		wantOffset int
		wantCount  int
	}{
		{"empty", Histogram{}, 0, 0},
		{"single", Histogram{7: 1}, 7, 1},
		{"clear winner", Histogram{1: 2, 4: 9, 8: 3}, 4, 9},
		{"tie takes smaller offset", Histogram{12: 5, 3: 5, 9: 1}, 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, c := tt.h.Peak()
			if off != tt.wantOffset || c != tt.wantCount {
				t.Errorf("Peak() = (%d, %d), want (%d, %d)", off, c, tt.wantOffset, tt.wantCount)
			}
		})
	}
}

func TestHistogramsMerge(t *testing.T) {
	a := Histograms{1: {0: 2, 3: 1}, 2: {5: 1}}
	b := Histograms{1: {3: 4}, 3: {1: 1}}
	c := Histograms{2: {5: 2, 6: 1}}

	left := Histograms{}
	left.Merge(a)
	left.Merge(b)
	left.Merge(c)

	bc := Histograms{}
	bc.Merge(c)
	bc.Merge(b)
	right := Histograms{}
	right.Merge(bc)
	right.Merge(a)

	want := Histograms{1: {0: 2, 3: 5}, 2: {5: 3, 6: 1}, 3: {1: 1}}
	if !reflect.DeepEqual(left, want) {
		t.Errorf("merge = %v, want %v", left, want)
	}
	if !reflect.DeepEqual(right, want) {
		t.Errorf("merge in other order = %v, want %v", right, want)
	}
	// sources untouched
	if a[1][3] != 1 {
		t.Errorf("Merge mutated its argument: %v", a)
	}
}

func TestHistogramsScores(t *testing.T) {
	hs := Histograms{}
	hs.Add(9, 2)
	hs.Add(3, 0)
	hs.Add(3, 0)
	hs.Add(3, 4)

	want := []models.MatchScore{
		{SongID: 3, Score: 2, Offset: 0},
		{SongID: 9, Score: 1, Offset: 2},
	}
	if got := hs.Scores(); !reflect.DeepEqual(got, want) {
		t.Errorf("Scores() = %v, want %v", got, want)
	}
}
