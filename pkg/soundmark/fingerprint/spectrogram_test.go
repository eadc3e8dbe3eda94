package fingerprint

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/himanishpuri/soundmark/pkg/models"
)

func sine(n, sampleRate int, freqs ...float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * float64(i) / float64(sampleRate))
		}
		out[i] = float32(v / float64(len(freqs)))
	}
	return out
}

func TestHamming(t *testing.T) {
	for _, size := range []int{128, 256, 512, 1024} {
		window := Hamming(size)

		if len(window) != size {
			t.Errorf("Expected window size %d, got %d", size, len(window))
		}

		for i, val := range window {
			if val < 0 || val > 1 {
				t.Errorf("Window value %d out of range [0,1]: %f", i, val)
			}
		}

		if math.Abs(window[0]-0.08) > 1e-12 {
			t.Errorf("Expected first coefficient 0.08, got %f", window[0])
		}
		if math.Abs(window[size/2]-1.0) > 1e-12 {
			t.Errorf("Expected centre coefficient 1.0, got %f", window[size/2])
		}
	}
}

func TestWindowSizeValid(t *testing.T) {
	tests := []struct {
		size WindowSize
		want bool
	}{
		{1, false},
		{2, true},
		{1024, true},
		{1000, false},
		{8192, true},
		{16384, false},
		{0, false},
		{-4, false},
	}

	for _, tt := range tests {
		if got := tt.size.Valid(); got != tt.want {
			t.Errorf("WindowSize(%d).Valid() = %v, expected %v", tt.size, got, tt.want)
		}
	}
}

func TestGenerateSpectrogramStartIndices(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		size    WindowSize
		overlap int
		want    []int
	}{
		{"exact fit", 8, 4, 0, []int{0, 4}},
		{"overlapping exact", 10, 4, 2, []int{0, 2, 4, 6}},
		{"clamped tail", 11, 4, 2, []int{0, 2, 4, 6, 7}},
		{"single window", 4, 4, 3, []int{0}},
		{"no overlap clamped", 9, 4, 0, []int{0, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := GenerateSpectrogram(make([]float32, tt.n), tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("GenerateSpectrogram failed: %v", err)
			}
			if len(windows) != len(tt.want) {
				t.Fatalf("Expected %d windows, got %d", len(tt.want), len(windows))
			}
			for i, w := range windows {
				if w.StartIdx != tt.want[i] {
					t.Errorf("Window %d starts at %d, expected %d", i, w.StartIdx, tt.want[i])
				}
				if len(w.Spectrum) != int(tt.size)/2 {
					t.Errorf("Window %d spectrum length %d, expected %d", i, len(w.Spectrum), tt.size/2)
				}
			}
		})
	}
}

func TestGenerateSpectrogramContractViolations(t *testing.T) {
	samples := make([]float32, 2048)

	tests := []struct {
		name    string
		samples []float32
		size    WindowSize
		overlap int
	}{
		{"overlap equals window", samples, 1024, 1024},
		{"overlap exceeds window", samples, 1024, 2000},
		{"negative overlap", samples, 1024, -1},
		{"not power of two", samples, 1000, 0},
		{"too large", make([]float32, 20000), 16384, 0},
		{"signal shorter than window", samples[:100], 1024, 512},
		{"empty signal", nil, 1024, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSpectrogram(tt.samples, tt.size, tt.overlap)
			if !errors.Is(err, models.ErrContractViolation) {
				t.Errorf("Expected ErrContractViolation, got %v", err)
			}
		})
	}
}

func TestGenerateSpectrogramLocatesTone(t *testing.T) {
	const (
		sampleRate = 11025
		size       = 1024
	)
	// Bin 100 centre frequency.
	freq := 100.0 * sampleRate / size

	windows, err := GenerateSpectrogram(sine(sampleRate, sampleRate, freq), size, 512)
	if err != nil {
		t.Fatalf("GenerateSpectrogram failed: %v", err)
	}

	for _, w := range windows {
		best := 0
		for i := range w.Spectrum {
			if cmplx.Abs(w.Spectrum[i]) > cmplx.Abs(w.Spectrum[best]) {
				best = i
			}
		}
		if best != 100 {
			t.Fatalf("Window at %d peaks at bin %d, expected 100", w.StartIdx, best)
		}
	}
}
