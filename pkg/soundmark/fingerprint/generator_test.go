package fingerprint

import (
	"slices"
	"testing"
)

func peaksAt(times ...float64) []Peak {
	peaks := make([]Peak, len(times))
	for i, ts := range times {
		peaks[i] = Peak{Time: ts, Freq: uint32(10 + i*7)}
	}
	return peaks
}

func TestGenerateFingerprintsPerAnchor(t *testing.T) {
	peaks := peaksAt(0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7)
	const n = 5

	fps := GenerateFingerprints(peaks, n)

	anchors := len(peaks) - n
	if len(fps) != anchors*n {
		t.Fatalf("Expected %d fingerprints, got %d", anchors*n, len(fps))
	}

	for i := 0; i < anchors; i++ {
		group := fps[i*n : (i+1)*n]
		wantAnchorAddr := BuildAddress(peaks[i], peaks[i+n])
		wantTime := uint32(i * 100)

		for j, fp := range group {
			if fp.AnchorAddress != wantAnchorAddr {
				t.Errorf("Anchor %d fp %d: anchor address %#x, expected %#x", i, j, fp.AnchorAddress, wantAnchorAddr)
			}
			if fp.AnchorTime != wantTime {
				t.Errorf("Anchor %d fp %d: anchor time %d, expected %d", i, j, fp.AnchorTime, wantTime)
			}
			if fp.Address != BuildAddress(peaks[i], peaks[i+j]) {
				t.Errorf("Anchor %d fp %d: unexpected address %#x", i, j, fp.Address)
			}
		}
	}
}

func TestGenerateFingerprintsSortsInput(t *testing.T) {
	sorted := peaksAt(0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6)
	shuffled := []Peak{sorted[3], sorted[0], sorted[6], sorted[2], sorted[5], sorted[1], sorted[4]}
	before := slices.Clone(shuffled)

	got := GenerateFingerprints(shuffled, 5)
	want := GenerateFingerprints(sorted, 5)

	if !slices.Equal(got, want) {
		t.Error("Fingerprints depend on input order")
	}
	if !slices.Equal(shuffled, before) {
		t.Error("Input peaks were reordered")
	}
}

func TestGenerateFingerprintsTieOnTime(t *testing.T) {
	peaks := []Peak{
		{Time: 0.1, Freq: 50},
		{Time: 0.1, Freq: 20},
		{Time: 0.0, Freq: 90},
		{Time: 0.2, Freq: 1},
	}

	fps := GenerateFingerprints(peaks, 2)
	if len(fps) != 4 {
		t.Fatalf("Expected 4 fingerprints, got %d", len(fps))
	}
	// Second anchor is the lower bin of the two simultaneous peaks.
	if got := UnpackAddress(fps[2].Address).AnchorFreq; got != 20 {
		t.Errorf("Expected second anchor at bin 20, got %d", got)
	}
}

func TestGenerateFingerprintsInsufficientPeaks(t *testing.T) {
	for n := 0; n <= 5; n++ {
		if fps := GenerateFingerprints(peaksAt(make([]float64, n)...), 5); len(fps) != 0 {
			t.Errorf("%d peaks: expected no fingerprints, got %d", n, len(fps))
		}
	}
	if fps := GenerateFingerprints(nil, 5); fps != nil {
		t.Errorf("Expected nil for nil input, got %v", fps)
	}
	if fps := GenerateFingerprints(peaksAt(0, 1, 2), 0); fps != nil {
		t.Errorf("Expected nil for zero neighborhood, got %v", fps)
	}
}

func TestGenerateFingerprintsNeighborhoodOfOne(t *testing.T) {
	peaks := peaksAt(0.0, 0.25, 0.5)

	fps := GenerateFingerprints(peaks, 1)
	if len(fps) != 2 {
		t.Fatalf("Expected 2 fingerprints, got %d", len(fps))
	}
	// The only sibling is the anchor paired with itself.
	self := UnpackAddress(fps[0].Address)
	if self.AnchorFreq != self.TargetFreq || self.DeltaMs != 0 {
		t.Errorf("Expected self-pair address, got %+v", self)
	}
}

func TestGenerateFingerprintsMonotonicAnchorTime(t *testing.T) {
	peaks := peaksAt(0.0116, 0.05, 0.12, 0.3, 0.31, 0.4, 0.55, 0.9, 1.2, 1.3)

	fps := GenerateFingerprints(peaks, 5)
	if fps[0].AnchorTime != 12 {
		t.Errorf("Expected rounded anchor time 12, got %d", fps[0].AnchorTime)
	}
	for i := 1; i < len(fps); i++ {
		if fps[i].AnchorTime < fps[i-1].AnchorTime {
			t.Fatalf("Anchor time decreased at %d: %d < %d", i, fps[i].AnchorTime, fps[i-1].AnchorTime)
		}
	}
}

func TestRecords(t *testing.T) {
	fps := GenerateFingerprints(peaksAt(0, 0.1, 0.2, 0.3, 0.4, 0.5), 5)

	recs := Records(fps, 9)
	if len(recs) != len(fps) {
		t.Fatalf("Expected %d records, got %d", len(fps), len(recs))
	}
	for i, r := range recs {
		if r.SongID != 9 || r.Fingerprint != fps[i] {
			t.Errorf("Record %d mismatch: %+v", i, r)
		}
	}
}
