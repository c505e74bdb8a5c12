package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/bandprint/internal/audio"
)

// handleRender draws a spectrogram PNG of a WAV file, handy for checking
// which bands carry energy before tuning the band table.
func handleRender(args []string) error {
	renderCmd := flag.NewFlagSet("render", flag.ContinueOnError)
	width := renderCmd.Int("width", 2048, "Image width in pixels")
	height := renderCmd.Int("height", 512, "Image height in pixels (frequency bins)")
	positional, err := splitArgs(renderCmd, args)
	if err != nil {
		return err
	}
	if len(positional) != 2 {
		return errors.New("usage: bandprint render <wav_file> <png_file>")
	}
	in, out := positional[0], positional[1]
	if *width <= 0 || *height <= 0 {
		return errors.New("width and height must be positive")
	}

	samples, rate, err := audio.ReadWavAsFloat64(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("%s has no samples", in)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, *width, *height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		samples,
		uint32(rate),
		uint32(*height),
		false, // Hamming window
		false, // FFT
		true,  // magnitude
		false, // linear scale
	)

	if err := spectrogram.SavePng(img, out); err != nil {
		return fmt.Errorf("saving %s: %w", out, err)
	}
	fmt.Printf("Saved spectrogram of %d samples at %d Hz to %s\n", len(samples), rate, out)
	return nil
}
