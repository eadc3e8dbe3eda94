package fingerprint

// Peak is a salient point of the spectrogram. Freq is a bin index, not Hz.
type Peak struct {
	Time float64
	Freq uint32
}

// Band is a half-open range of spectrum bins [Lo, Hi).
type Band struct {
	Lo, Hi int
}

// DefaultBands splits a 512-bin half spectrum into six roughly logarithmic
// bands. The last one is clamped to the spectrum length at extraction time.
var DefaultBands = []Band{
	{0, 10},
	{10, 20},
	{20, 40},
	{40, 80},
	{80, 160},
	{160, 512},
}

// FilterSpectrogram keeps, per window, the strongest bin of each band whose
// squared magnitude is strictly above the mean of all band maxima in that
// window. Bands lying entirely past the spectrum are ignored.
func FilterSpectrogram(windows []FFTWindow, sampleRate int, bands []Band) []Peak {
	if sampleRate <= 0 {
		return nil
	}

	var peaks []Peak
	maxPower := make([]float64, 0, len(bands))
	maxBin := make([]int, 0, len(bands))

	for _, w := range windows {
		maxPower = maxPower[:0]
		maxBin = maxBin[:0]

		for _, b := range bands {
			hi := min(b.Hi, len(w.Spectrum))
			if b.Lo >= hi {
				continue
			}
			best, bestBin := 0.0, b.Lo
			for i := b.Lo; i < hi; i++ {
				if p := power(w.Spectrum[i]); p > best {
					best, bestBin = p, i
				}
			}
			maxPower = append(maxPower, best)
			maxBin = append(maxBin, bestBin)
		}
		if len(maxPower) == 0 {
			continue
		}

		var sum float64
		for _, p := range maxPower {
			sum += p
		}
		mean := sum / float64(len(maxPower))

		t := float64(w.StartIdx) / float64(sampleRate)
		for i, p := range maxPower {
			if p > mean {
				peaks = append(peaks, Peak{Time: t, Freq: uint32(maxBin[i])})
			}
		}
	}
	return peaks
}

func power(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}
