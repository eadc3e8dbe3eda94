package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark/audio"
)

func TestPipelineRun(t *testing.T) {
	const sampleRate = 44100
	s := audio.Sample{Samples: sine(3*sampleRate, sampleRate, 440, 1250, 3100), SampleRate: sampleRate}

	p := DefaultPipeline()
	res, err := p.Run(s)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Sample.SampleRate != sampleRate/DefaultDownsampleFactor {
		t.Errorf("Expected downsampled rate %d, got %d", sampleRate/DefaultDownsampleFactor, res.Sample.SampleRate)
	}
	if len(res.Peaks) == 0 {
		t.Fatal("No peaks extracted")
	}
	for i := 1; i < len(res.Peaks); i++ {
		a, b := res.Peaks[i-1], res.Peaks[i]
		if b.Time < a.Time || (b.Time == a.Time && b.Freq < a.Freq) {
			t.Fatalf("Peaks not sorted at %d", i)
		}
	}
	if len(res.Fingerprints)%p.NeighborhoodSize != 0 {
		t.Errorf("Fingerprint count %d not a multiple of %d", len(res.Fingerprints), p.NeighborhoodSize)
	}
	if want := (len(res.Peaks) - p.NeighborhoodSize) * p.NeighborhoodSize; len(res.Fingerprints) != want {
		t.Errorf("Expected %d fingerprints, got %d", want, len(res.Fingerprints))
	}

	again, err := p.Run(s)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !slices.Equal(res.Fingerprints, again.Fingerprints) {
		t.Error("Pipeline output is not deterministic")
	}
}

func TestPipelineRejectsShortSignal(t *testing.T) {
	s := audio.Sample{Samples: make([]float32, 1000), SampleRate: 44100}

	_, err := DefaultPipeline().Run(s)
	if !errors.Is(err, models.ErrContractViolation) {
		t.Errorf("Expected ErrContractViolation, got %v", err)
	}
}

func TestPipelineRejectsBadFactor(t *testing.T) {
	p := DefaultPipeline()
	p.DownsampleFactor = 0

	_, err := p.Run(audio.Sample{Samples: make([]float32, 8192), SampleRate: 44100})
	if !errors.Is(err, models.ErrContractViolation) {
		t.Errorf("Expected ErrContractViolation, got %v", err)
	}
}

func TestFingerprintFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.aac")
	if err := os.WriteFile(path, []byte{0}, 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if _, err := DefaultPipeline().FingerprintFile(path); !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRenderPNG(t *testing.T) {
	const sampleRate = 11025
	s := audio.Sample{Samples: sine(sampleRate, sampleRate, 700, 2200), SampleRate: sampleRate}
	path := filepath.Join(t.TempDir(), "spec.png")

	if err := RenderPNG(s, path, RenderOptions{Width: 256, Height: 128}); err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PNG not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("PNG file is empty")
	}

	if err := RenderPNG(audio.Sample{SampleRate: sampleRate}, path, DefaultRenderOptions); err == nil {
		t.Error("Expected error for empty signal")
	}
}
