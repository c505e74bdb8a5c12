package fingerprint

import (
	"fmt"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/himanishpuri/bandprint/internal/audio"
	"github.com/himanishpuri/bandprint/pkg/models"
)

// Tunables
const (
	// DefaultChunkSize is the number of samples per time slice. At 11025 Hz
	// a bin is ~2.7 Hz wide, so DefaultBoundaries scan ~108 Hz to ~807 Hz.
	DefaultChunkSize = 4096
)

// Transformer cuts raw audio into consecutive chunks and runs a windowed FFT
// over each one. One frame per chunk; a trailing partial chunk is dropped.
type Transformer struct {
	chunkSize int
	hopSize   int
	window    []float64
}

// NewTransformer builds a transformer. hopSize 0 means non-overlapping chunks.
func NewTransformer(chunkSize, hopSize int) (*Transformer, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, chunkSize)
	}
	if hopSize == 0 {
		hopSize = chunkSize
	}
	if hopSize < 0 {
		return nil, fmt.Errorf("%w: hop size must be positive, got %d", models.ErrConfiguration, hopSize)
	}
	return &Transformer{
		chunkSize: chunkSize,
		hopSize:   hopSize,
		window:    window.Hamming(chunkSize),
	}, nil
}

// ChunkSize is the number of samples per frame.
func (tr *Transformer) ChunkSize() int { return tr.chunkSize }

// Bins is the number of coefficients in every frame.
func (tr *Transformer) Bins() int { return tr.chunkSize }

// SliceDuration is the time between the starts of two consecutive frames.
func (tr *Transformer) SliceDuration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(tr.hopSize) * time.Second / time.Duration(sampleRate)
}

// Transform decodes raw audio (16-bit little-endian mono PCM) and returns
// its frames. Input shorter than one chunk yields no frames and no error.
func (tr *Transformer) Transform(raw []byte) ([]Frame, error) {
	samples, err := audio.PCMToFloat64(raw)
	if err != nil {
		return nil, err
	}
	return tr.STFT(samples), nil
}

// STFT computes the short-time FFT of normalized samples.
func (tr *Transformer) STFT(samples []float64) []Frame {
	if len(samples) < tr.chunkSize {
		return nil
	}

	frames := make([]Frame, 0, (len(samples)-tr.chunkSize)/tr.hopSize+1)
	chunk := make([]float64, tr.chunkSize)
	for start := 0; start+tr.chunkSize <= len(samples); start += tr.hopSize {
		for i := 0; i < tr.chunkSize; i++ {
			chunk[i] = samples[start+i] * tr.window[i]
		}
		frames = append(frames, Frame(fft.FFTReal(chunk)))
	}
	return frames
}
