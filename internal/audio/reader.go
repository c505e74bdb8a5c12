package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/himanishpuri/bandprint/pkg/models"
)

// ReadWav decodes a PCM WAV stream and returns mono samples normalized to
// [-1, 1] together with the sample rate. Channels are averaged.
func ReadWav(r io.ReadSeeker) ([]float64, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a valid WAV file", models.ErrInput)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM buffer: %w", err)
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		return nil, 0, fmt.Errorf("%w: WAV file declares no channels", models.ErrInput)
	}
	if decoder.BitDepth == 0 {
		return nil, 0, fmt.Errorf("%w: WAV file declares no bit depth", models.ErrInput)
	}
	maxVal := float64(int(1) << (uint(decoder.BitDepth) - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / maxVal
	}

	return samples, int(decoder.SampleRate), nil
}

// ReadWavAsFloat64 reads a WAV file from disk. See ReadWav.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	return ReadWav(f)
}

// ReadMP3 decodes an MP3 stream into mono samples. go-mp3 always yields
// 16-bit little-endian stereo.
func ReadMP3(r io.Reader) ([]float64, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decoding MP3: %v", models.ErrInput, err)
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("reading MP3 data: %w", err)
	}
	// drop a trailing partial stereo frame
	data = data[:len(data)-len(data)%(2*BytesPerSample)]

	int16Samples, err := convertToInt16Samples(data)
	if err != nil {
		return nil, 0, err
	}
	samples, err := convertToMonoFloat64(int16Samples, 2)
	if err != nil {
		return nil, 0, err
	}
	return samples, decoder.SampleRate(), nil
}

// ReadMP3File reads an MP3 file from disk. See ReadMP3.
func ReadMP3File(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	return ReadMP3(f)
}
