package match

import (
	"sort"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// Histogram counts matches per offset (in time slices) for one song.
type Histogram map[int]int

// Peak returns the offset with the highest count. Equal counts resolve to
// the smaller offset so the result does not depend on map order.
func (h Histogram) Peak() (offset, count int) {
	for off, c := range h {
		if c > count || (c == count && off < offset) {
			offset, count = off, c
		}
	}
	return offset, count
}

// Histograms holds the offset histogram of every candidate song of one query.
type Histograms map[uint32]Histogram

// Add records one match of songID at offset.
func (hs Histograms) Add(songID uint32, offset int) {
	h, ok := hs[songID]
	if !ok {
		h = make(Histogram)
		hs[songID] = h
	}
	h[offset]++
}

// Merge folds other into hs by summing counts per song and offset.
func (hs Histograms) Merge(other Histograms) {
	for songID, h := range other {
		dst, ok := hs[songID]
		if !ok {
			dst = make(Histogram, len(h))
			hs[songID] = dst
		}
		for off, c := range h {
			dst[off] += c
		}
	}
}

// Scores returns one MatchScore per song with at least one match, ordered
// by song ID.
func (hs Histograms) Scores() []models.MatchScore {
	scores := make([]models.MatchScore, 0, len(hs))
	for songID, h := range hs {
		offset, count := h.Peak()
		if count == 0 {
			continue
		}
		scores = append(scores, models.MatchScore{SongID: songID, Score: count, Offset: offset})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].SongID < scores[j].SongID })
	return scores
}
