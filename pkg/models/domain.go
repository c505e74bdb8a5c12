package models

import "fmt"

// DataPoint is the stored value for a hash bucket entry.
// Time is the index of the time slice (frame) the hash was taken from.
type DataPoint struct {
	SongID uint32
	Time   int
}

// MatchScore is the peak of a song's offset histogram.
type MatchScore struct {
	SongID uint32
	Score  int
	Offset int // offset (in time slices) holding the peak
}

// RankedMatch is one entry of the ranked result list.
type RankedMatch struct {
	SongID uint32
	Name   string
	Score  int
	Offset int
}

func (m RankedMatch) String() string {
	return fmt.Sprintf("%s: with %d matches.", m.Name, m.Score)
}

// MatchResult represents a song match result with metadata and scoring.
type MatchResult struct {
	SongID     uint32  // Database ID of the matched song
	Title      string  // Song title
	Artist     string  // Artist name
	Score      int     // Peak count of the offset histogram
	Offset     int     // Best offset in time slices
	OffsetMs   int64   // Best offset in milliseconds
	Confidence float64 // Match confidence as a percentage (0-100)
	Prominence float64 // Standard score of Score among all candidates
}

// Song represents a song entry in the catalog.
type Song struct {
	ID         uint32 // Database ID
	Title      string // Song title
	Artist     string // Artist name
	Path       string // Source file the song was indexed from
	DurationMs int    // Duration in milliseconds
}

// Name is the display name used in ranked output.
func (s Song) Name() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Title + " - " + s.Artist
}

// Stats summarises the size of the index.
type Stats struct {
	Songs        int64
	Fingerprints int64
}
