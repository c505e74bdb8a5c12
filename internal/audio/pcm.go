package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/bandprint/pkg/models"
)

const (
	// BytesPerSample is the width of one raw PCM sample (16-bit signed, little-endian).
	BytesPerSample = 2

	int16Scale = 1.0 / 32768.0
)

// convertToInt16Samples converts little-endian byte data to int16 samples
func convertToInt16Samples(data []byte) ([]int16, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: PCM data has odd length %d", models.ErrInput, len(data))
	}
	int16Buf := make([]int16, len(data)/BytesPerSample)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, int16Buf); err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}
	return int16Buf, nil
}

// convertMonoToFloat64 converts mono int16 samples to float64
func convertMonoToFloat64(samples []int16, scale float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) * scale
	}
	return out
}

// convertStereoToMono converts interleaved stereo int16 samples to mono float64 by averaging channels
func convertStereoToMono(samples []int16, scale float64) []float64 {
	frames := len(samples) / 2
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := float64(samples[2*i]) * scale
		r := float64(samples[2*i+1]) * scale
		out[i] = (l + r) * 0.5
	}
	return out
}

// convertToMonoFloat64 converts int16 samples to mono float64 samples normalized to [-1, 1]
func convertToMonoFloat64(samples []int16, numChannels int) ([]float64, error) {
	switch numChannels {
	case 1:
		return convertMonoToFloat64(samples, int16Scale), nil
	case 2:
		return convertStereoToMono(samples, int16Scale), nil
	default:
		return nil, errors.New("unsupported channel count: only mono/stereo supported")
	}
}

// PCMToFloat64 decodes raw audio (16-bit signed little-endian mono PCM)
// into samples normalized to [-1, 1].
func PCMToFloat64(raw []byte) ([]float64, error) {
	samples, err := convertToInt16Samples(raw)
	if err != nil {
		return nil, err
	}
	return convertMonoToFloat64(samples, int16Scale), nil
}

// Float64ToPCM encodes normalized samples as raw audio. Values outside
// [-1, 1] are clipped.
func Float64ToPCM(samples []float64) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		v := math.Round(s * 32767)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(int16(v)))
	}
	return out
}

// DurationMs returns the play time of raw audio at the given sample rate.
func DurationMs(raw []byte, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return len(raw) / BytesPerSample * 1000 / sampleRate
}
