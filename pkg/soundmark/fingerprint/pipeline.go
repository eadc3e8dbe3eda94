package fingerprint

import (
	"fmt"

	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark/audio"
)

// DefaultDownsampleFactor takes 44.1 kHz input to ~11 kHz.
const DefaultDownsampleFactor = 4

// Pipeline holds the tunables shared by indexing and querying. Both sides
// must use the same values or their addresses will not line up.
type Pipeline struct {
	DownsampleFactor int
	WindowSize       WindowSize
	Overlap          int
	Bands            []Band
	NeighborhoodSize int
}

// DefaultPipeline returns the standard parameter set.
func DefaultPipeline() Pipeline {
	return Pipeline{
		DownsampleFactor: DefaultDownsampleFactor,
		WindowSize:       DefaultWindowSize,
		Overlap:          DefaultOverlap,
		Bands:            DefaultBands,
		NeighborhoodSize: DefaultNeighborhoodSize,
	}
}

// Result is everything the pipeline derived from one clip.
type Result struct {
	Sample       audio.Sample // downsampled signal
	Peaks        []Peak
	Fingerprints []models.Fingerprint
}

// Run downsamples s, builds its spectrogram, extracts peaks and hashes them.
func (p Pipeline) Run(s audio.Sample) (*Result, error) {
	ds, err := s.Downsample(p.DownsampleFactor)
	if err != nil {
		return nil, fmt.Errorf("downsampling: %w", err)
	}

	windows, err := GenerateSpectrogram(ds.Samples, p.WindowSize, p.Overlap)
	if err != nil {
		return nil, fmt.Errorf("building spectrogram: %w", err)
	}

	bands := p.Bands
	if len(bands) == 0 {
		bands = DefaultBands
	}
	peaks := FilterSpectrogram(windows, ds.SampleRate, bands)
	SortPeaks(peaks)

	return &Result{
		Sample:       ds,
		Peaks:        peaks,
		Fingerprints: GenerateFingerprints(peaks, p.NeighborhoodSize),
	}, nil
}

// FingerprintFile decodes path and runs the pipeline on it.
func (p Pipeline) FingerprintFile(path string) (*Result, error) {
	s, err := audio.Decode(path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return p.Run(s)
}
