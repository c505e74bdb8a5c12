package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/bandprint/pkg/utils"
)

const DefaultSampleRate = 11025

type ConvertWAVConfig struct {
	SampleRate int // e.g. 11025, 22050, 44100
}

// ConvertToMonoWAV converts an audio file to mono 16-bit PCM WAV with ffmpeg
// and writes it to a uniquely named file in outputDir. The caller owns the
// returned file.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, uuid.NewString()+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// DecodeConfig controls Decode.
type DecodeConfig struct {
	SampleRate int    // target rate of the raw PCM output
	TempDir    string // scratch space for ffmpeg conversions
}

// Decode turns an audio file into raw audio: 16-bit signed little-endian
// mono PCM at cfg.SampleRate. WAV and MP3 are decoded in-process; any other
// container goes through ffmpeg.
func Decode(ctx context.Context, path string, cfg DecodeConfig) ([]byte, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		samples []float64
		rate    int
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, rate, err = ReadWavAsFloat64(path)
	case ".mp3":
		samples, rate, err = ReadMP3File(path)
	default:
		var wavPath string
		wavPath, err = ConvertToMonoWAV(ctx, path, cfg.TempDir, ConvertWAVConfig{SampleRate: cfg.SampleRate})
		if err != nil {
			return nil, fmt.Errorf("audio conversion failed: %w", err)
		}
		defer os.Remove(wavPath)
		samples, rate, err = ReadWavAsFloat64(wavPath)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	return Float64ToPCM(Resample(samples, rate, cfg.SampleRate)), nil
}
