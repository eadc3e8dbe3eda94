package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/himanishpuri/soundmark/pkg/models"
)

// nyquistMargin keeps the low-pass cutoff below the new Nyquist frequency;
// the one-pole filter rolls off slowly.
const nyquistMargin = 0.45

// Sample is a mono PCM signal. Methods never modify the receiver.
type Sample struct {
	Samples    []float32
	SampleRate int
}

// Len returns the number of samples.
func (s Sample) Len() int {
	return len(s.Samples)
}

// Duration returns the playback length of the signal.
func (s Sample) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// LowPassFilter applies a first-order IIR low-pass filter:
//
//	y[n] = a*x[n] + (1-a)*y[n-1],  a = 2*pi*fc / (2*pi*fc + 1)
//
// where fc is cutoffHz normalized by the sample rate. y[0] = x[0].
func (s Sample) LowPassFilter(cutoffHz float64) Sample {
	out := Sample{
		Samples:    make([]float32, len(s.Samples)),
		SampleRate: s.SampleRate,
	}
	if len(s.Samples) == 0 {
		return out
	}

	fc := cutoffHz / float64(s.SampleRate)
	alpha := 2 * math.Pi * fc / (2*math.Pi*fc + 1)

	prev := float64(s.Samples[0])
	out.Samples[0] = s.Samples[0]
	for i := 1; i < len(s.Samples); i++ {
		prev = alpha*float64(s.Samples[i]) + (1-alpha)*prev
		out.Samples[i] = float32(prev)
	}
	return out
}

// Downsample low-pass filters the signal at 0.45 of the target rate and
// keeps every factor-th sample, starting with the first.
func (s Sample) Downsample(factor int) (Sample, error) {
	if factor < 1 {
		return Sample{}, fmt.Errorf("%w: downsample factor must be >= 1, got %d", models.ErrContractViolation, factor)
	}
	newRate := s.SampleRate / factor
	if newRate <= 0 {
		return Sample{}, fmt.Errorf("%w: sample rate %d cannot be divided by %d", models.ErrContractViolation, s.SampleRate, factor)
	}

	filtered := s.LowPassFilter(float64(newRate) * nyquistMargin)

	out := make([]float32, 0, (len(filtered.Samples)+factor-1)/factor)
	for i := 0; i < len(filtered.Samples); i += factor {
		out = append(out, filtered.Samples[i])
	}

	return Sample{Samples: out, SampleRate: newRate}, nil
}
