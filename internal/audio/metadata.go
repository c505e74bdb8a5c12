package audio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the subset of embedded metadata used for the song catalog.
type Tags struct {
	Title  string
	Artist string
}

// ReadTags reads ID3/MP4/FLAC/OGG tags from path. Missing or unreadable tags
// fall back to the file name as title, so the result is always usable.
func ReadTags(path string) Tags {
	fallback := Tags{Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}

	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}

	tags := Tags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
	}
	if tags.Title == "" {
		tags.Title = fallback.Title
	}
	if tags.Artist == "" {
		tags.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	return tags
}

// IsAudioFile reports whether path has an extension the indexer picks up.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".m4a", ".flac", ".ogg", ".aac":
		return true
	}
	return false
}

// FindAudioFiles walks dir and returns every audio file below it in lexical
// order.
func FindAudioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return files, nil
}
