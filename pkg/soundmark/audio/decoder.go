package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/himanishpuri/soundmark/pkg/models"
)

// wavFormatPCM is the only WAV encoding the decoder accepts.
const wavFormatPCM = 1

// Decode reads an audio file into a mono Sample. The container is chosen
// by extension: .wav (PCM 16/24/32-bit) or .mp3.
func Decode(path string) (Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sample{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	default:
		return Sample{}, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// DecodeWAV decodes a PCM WAV stream, normalizing samples to [-1, 1].
func DecodeWAV(r io.ReadSeeker) (Sample, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Sample{}, errors.New("not a valid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return Sample{}, fmt.Errorf("%w: WAV audio format %d, only PCM supported", models.ErrUnsupportedFormat, d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 16, 24, 32:
	default:
		return Sample{}, fmt.Errorf("%w: %d bits per sample", models.ErrUnsupportedFormat, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Sample{}, fmt.Errorf("reading PCM data: %w", err)
	}

	scale := 1.0 / float64(int64(1)<<(d.BitDepth-1))
	pcm := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = float32(float64(v) * scale)
	}

	mono, err := DownmixToMono(pcm, int(d.NumChans))
	if err != nil {
		return Sample{}, err
	}
	return Sample{Samples: mono, SampleRate: int(d.SampleRate)}, nil
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields 16-bit
// little-endian stereo, which is averaged down to mono.
func DecodeMP3(r io.Reader) (Sample, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return Sample{}, fmt.Errorf("opening mp3 stream: %w", err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return Sample{}, fmt.Errorf("decoding mp3 frames: %w", err)
	}

	const scale = 1.0 / 32768.0
	pcm := make([]float32, len(raw)/2)
	for i := range pcm {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		pcm[i] = float32(float64(v) * scale)
	}

	mono, err := DownmixToMono(pcm, 2)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Samples: mono, SampleRate: d.SampleRate()}, nil
}

// DownmixToMono averages interleaved stereo frames. Mono input is returned
// as is; any other channel count is a contract violation.
func DownmixToMono(interleaved []float32, channels int) ([]float32, error) {
	switch channels {
	case 1:
		return interleaved, nil
	case 2:
		frames := len(interleaved) / 2
		out := make([]float32, frames)
		for i := 0; i < frames; i++ {
			out[i] = (interleaved[2*i] + interleaved[2*i+1]) * 0.5
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d, only mono/stereo supported", models.ErrContractViolation, channels)
	}
}
