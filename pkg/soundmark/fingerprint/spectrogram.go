package fingerprint

import (
	"fmt"
	"math"

	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/mjibson/go-dsp/fft"
)

// WindowSize is the FFT frame length in samples.
type WindowSize int

const (
	MinWindowSize WindowSize = 2
	MaxWindowSize WindowSize = 8192

	DefaultWindowSize WindowSize = 1024
	DefaultOverlap               = 512
)

// Valid reports whether w is a power of two within [MinWindowSize, MaxWindowSize].
func (w WindowSize) Valid() bool {
	return w >= MinWindowSize && w <= MaxWindowSize && w&(w-1) == 0
}

// FFTWindow is one spectrogram frame: where it starts in the signal and
// the first half of its spectrum.
type FFTWindow struct {
	StartIdx int
	Spectrum []complex128
}

// Hamming returns the n-point window 0.54 - 0.46*cos(2*pi*i/n).
func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// GenerateSpectrogram slides a Hamming-windowed FFT over samples, advancing
// by size-overlap. The last frame is pulled back so that it ends exactly at
// the end of the signal.
func GenerateSpectrogram(samples []float32, size WindowSize, overlap int) ([]FFTWindow, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: window size %d is not a power of two in [%d, %d]",
			models.ErrContractViolation, size, MinWindowSize, MaxWindowSize)
	}
	n := int(size)
	if overlap < 0 || overlap >= n {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", models.ErrContractViolation, overlap, n)
	}
	if len(samples) < n {
		return nil, fmt.Errorf("%w: signal of %d samples is shorter than window size %d",
			models.ErrContractViolation, len(samples), n)
	}

	win := Hamming(n)
	hop := n - overlap
	last := len(samples) - n

	windows := make([]FFTWindow, 0, last/hop+2)
	frame := make([]float64, n)
	for start := 0; ; start += hop {
		if start > last {
			start = last
		}
		for i := 0; i < n; i++ {
			frame[i] = float64(samples[start+i]) * win[i]
		}
		spec := fft.FFTReal(frame)
		windows = append(windows, FFTWindow{
			StartIdx: start,
			Spectrum: append([]complex128(nil), spec[:n/2]...),
		})
		if start == last {
			break
		}
	}
	return windows, nil
}
