package main

import "github.com/himanishpuri/bandprint/pkg/models"

// MaxRawMatchBytes caps POST /api/match/raw bodies (~2 minutes at 11025 Hz).
const MaxRawMatchBytes = 4 << 20

// MatchResponse is the response for both match endpoints
type MatchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

// MatchResultDTO represents a single match result
type MatchResultDTO struct {
	SongID     uint32  `json:"song_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Score      int     `json:"score"`
	Offset     int     `json:"offset_slices"`
	OffsetMs   int64   `json:"offset_ms"`
	Confidence float64 `json:"confidence"`
	Prominence float64 `json:"prominence"`
}

func newMatchResponse(matches []models.MatchResult) MatchResponse {
	dtos := make([]MatchResultDTO, len(matches))
	for i, m := range matches {
		dtos[i] = MatchResultDTO{
			SongID:     m.SongID,
			Title:      m.Title,
			Artist:     m.Artist,
			Score:      m.Score,
			Offset:     m.Offset,
			OffsetMs:   m.OffsetMs,
			Confidence: m.Confidence,
			Prominence: m.Prominence,
		}
	}
	return MatchResponse{Matches: dtos, Count: len(dtos)}
}

// AddSongResponse is the response for song addition
type AddSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Created bool   `json:"created"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID         uint32 `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int    `json:"duration_ms"`
}

func newSongDTO(s models.Song) SongDTO {
	return SongDTO{ID: s.ID, Title: s.Title, Artist: s.Artist, DurationMs: s.DurationMs}
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
}

// StatsResponse provides index size and settings
type StatsResponse struct {
	Status           string `json:"status"`
	DatabasePath     string `json:"database_path"`
	Backend          string `json:"backend"`
	SongCount        int64  `json:"song_count"`
	FingerprintCount int64  `json:"fingerprint_count"`
	SampleRate       int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
