package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/bandprint/internal/service"
	"github.com/himanishpuri/bandprint/pkg/models"
)

// Recognizer is what the HTTP layer needs from the service.
type Recognizer interface {
	Recognize(ctx context.Context, raw []byte) ([]models.MatchResult, error)
	RecognizeFile(ctx context.Context, path string) ([]models.MatchResult, error)
	AddSong(ctx context.Context, path, title, artist string) (uint32, bool, error)
	GetSong(ctx context.Context, songID uint32) (models.Song, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	DeleteSong(ctx context.Context, songID uint32) error
	Stats(ctx context.Context) (models.Stats, error)
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service Recognizer
	config  *ServerConfig
	log     service.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	Backend        string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(svc Recognizer, config *ServerConfig, log service.Logger) *Server {
	return &Server{
		service: svc,
		config:  config,
		log:     log,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps error kinds to status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf("%s: %v", action, err)
	} else {
		s.log.Warnf("%s: %v", action, err)
	}
	s.respondError(w, status, fmt.Sprintf("%s: %v", action, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInput), errors.Is(err, models.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "BandPrint API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"stats":      "GET /api/stats",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
			"matchFile":  "POST /api/match",
			"matchRaw":   "POST /api/match/raw",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondServiceError(w, "Failed to retrieve stats", err)
		return
	}

	s.respondJSON(w, http.StatusOK, StatsResponse{
		Status:           "healthy",
		DatabasePath:     s.config.DBPath,
		Backend:          s.config.Backend,
		SongCount:        stats.Songs,
		FingerprintCount: stats.Fingerprints,
		SampleRate:       s.config.SampleRate,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs(r.Context())
	if err != nil {
		s.respondServiceError(w, "Failed to retrieve songs", err)
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = newSongDTO(song)
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID uint32) {
	song, err := s.service.GetSong(r.Context(), songID)
	if err != nil {
		s.respondServiceError(w, fmt.Sprintf("Song with ID %d", songID), err)
		return
	}
	s.respondJSON(w, http.StatusOK, newSongDTO(song))
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID uint32) {
	if err := s.service.DeleteSong(r.Context(), songID); err != nil {
		s.respondServiceError(w, fmt.Sprintf("Failed to delete song %d", songID), err)
		return
	}

	s.log.Infof("Deleted song ID=%d", songID)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

// saveUpload copies the "audio" form file into a fresh directory under
// TempDir, keeping the upload's file name so decoding can pick the right
// reader and untagged files are titled after it. The caller removes the
// returned file's directory.
func (s *Server) saveUpload(r *http.Request) (string, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", nil, fmt.Errorf("%w: audio file is required", models.ErrInput)
	}
	defer file.Close()

	dir := filepath.Join(s.config.TempDir, "upload_"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating upload dir: %w", err)
	}
	name := filepath.Base(filepath.Clean("/" + header.Filename))
	if name == "/" || name == "." {
		name = "upload"
	}
	tempFile := filepath.Join(dir, name)

	out, err := os.Create(tempFile)
	if err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	_, err = io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("saving upload: %w", err)
	}
	return tempFile, header, nil
}

// handleAddSong handles POST /api/songs (multipart file upload)
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	// Parse multipart form (max 100MB)
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, header, err := s.saveUpload(r)
	if err != nil {
		s.respondServiceError(w, "Failed to process upload", err)
		return
	}
	defer os.RemoveAll(filepath.Dir(tempFile))

	// empty fields are filled from the file's tags, then its name
	s.log.Infof("Adding song from upload: %s", header.Filename)
	songID, created, err := s.service.AddSong(ctx, tempFile, r.FormValue("title"), r.FormValue("artist"))
	if err != nil {
		s.respondServiceError(w, "Failed to add song", err)
		return
	}
	song, err := s.service.GetSong(ctx, songID)
	if err != nil {
		s.respondServiceError(w, "Failed to add song", err)
		return
	}

	status, message := http.StatusCreated, "Song added successfully"
	if !created {
		status, message = http.StatusOK, "Song already indexed"
	}
	s.respondJSON(w, status, AddSongResponse{
		Message: message,
		ID:      song.ID,
		Title:   song.Title,
		Artist:  song.Artist,
		Created: created,
	})
}

// handleMatchFile handles POST /api/match (multipart file upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, header, err := s.saveUpload(r)
	if err != nil {
		s.respondServiceError(w, "Failed to process upload", err)
		return
	}
	defer os.RemoveAll(filepath.Dir(tempFile))

	s.log.Infof("Matching uploaded file: %s", header.Filename)
	matches, err := s.service.RecognizeFile(ctx, tempFile)
	if err != nil {
		s.respondServiceError(w, "Failed to match", err)
		return
	}
	s.respondJSON(w, http.StatusOK, newMatchResponse(matches))
}

// handleMatchRaw handles POST /api/match/raw. The body is raw audio:
// 16-bit little-endian mono PCM at the server's sample rate.
func (s *Server) handleMatchRaw(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxRawMatchBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(raw) > MaxRawMatchBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("body exceeds %d bytes", MaxRawMatchBytes))
		return
	}

	s.log.Debugf("Matching %d bytes of raw audio", len(raw))
	matches, err := s.service.Recognize(ctx, raw)
	if err != nil {
		s.respondServiceError(w, "Failed to match", err)
		return
	}
	s.respondJSON(w, http.StatusOK, newMatchResponse(matches))
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSong(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSong routes requests to /api/songs/{id}
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/api/songs/"):]
	if idStr == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, r, uint32(id))
	case http.MethodDelete:
		s.handleDeleteSong(w, r, uint32(id))
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMatch routes requests to /api/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleMatchFile(w, r)
}

// handleMatchRawRoute routes requests to /api/match/raw
func (s *Server) handleMatchRawRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleMatchRaw(w, r)
}
