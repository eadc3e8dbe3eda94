package fingerprint

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/soundmark/pkg/soundmark/audio"
)

// RenderOptions controls the spectrogram image size.
type RenderOptions struct {
	Width  int
	Height int // also the number of frequency bins drawn
}

// DefaultRenderOptions matches the resolution used for debugging captures.
var DefaultRenderOptions = RenderOptions{Width: 2048, Height: 512}

// RenderPNG draws a linear-magnitude spectrogram of s on a black background
// and writes it to path.
func RenderPNG(s audio.Sample, path string, opts RenderOptions) error {
	if s.Len() == 0 {
		return errors.New("cannot render empty signal")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultRenderOptions
	}

	samples := make([]float64, s.Len())
	for i, v := range s.Samples {
		samples[i] = float64(v)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale.
	spectrogram.Drawfft(img, samples, uint32(s.SampleRate), uint32(opts.Height), false, false, true, false)

	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving spectrogram to %s: %w", path, err)
	}
	return nil
}
