package models

import "errors"

// Error kinds shared by every layer. Wrap them with fmt.Errorf("...: %w", ...)
// and test with errors.Is.
var (
	// ErrConfiguration reports an invalid band table or option.
	ErrConfiguration = errors.New("configuration error")
	// ErrInput reports malformed or too short audio, spectral or key point data.
	ErrInput = errors.New("input error")
	// ErrIndex reports a failed fingerprint index lookup or write.
	ErrIndex = errors.New("index error")
	// ErrNotFound reports a song ID without metadata.
	ErrNotFound = errors.New("not found")
)
