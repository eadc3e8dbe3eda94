package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/himanishpuri/soundmark/pkg/models"
)

// Metadata describes an audio file without decoding its samples.
type Metadata struct {
	Filename    string
	Format      string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
}

// Probe reads the container header of a .wav or .mp3 file. For MP3 the
// channel count and bit depth describe the decoder output (16-bit stereo).
func Probe(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := &Metadata{Filename: filepath.Base(path)}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		d := wav.NewDecoder(f)
		if !d.IsValidFile() {
			return nil, errors.New("not a valid WAV file")
		}
		dur, err := d.Duration()
		if err != nil {
			return nil, fmt.Errorf("reading WAV duration: %w", err)
		}
		meta.Format = "wav"
		meta.SampleRate = int(d.SampleRate)
		meta.Channels = int(d.NumChans)
		meta.BitDepth = int(d.BitDepth)
		meta.DurationSec = dur.Seconds()

	case ".mp3":
		d, err := mp3.NewDecoder(f)
		if err != nil {
			return nil, fmt.Errorf("opening mp3 stream: %w", err)
		}
		meta.Format = "mp3"
		meta.SampleRate = d.SampleRate()
		meta.Channels = 2
		meta.BitDepth = 16
		// Length is in bytes of 16-bit stereo output.
		if n := d.Length(); n > 0 && meta.SampleRate > 0 {
			meta.DurationSec = float64(n) / 4 / float64(meta.SampleRate)
		}

	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, filepath.Ext(path))
	}

	return meta, nil
}
