package fingerprint

import (
	"cmp"
	"math"
	"slices"

	"github.com/himanishpuri/soundmark/pkg/models"
)

// DefaultNeighborhoodSize is the number of peaks in an anchor's target zone.
const DefaultNeighborhoodSize = 5

// SortPeaks orders peaks by time, then frequency bin.
func SortPeaks(peaks []Peak) {
	slices.SortFunc(peaks, func(a, b Peak) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Freq, b.Freq)
	})
}

// GenerateFingerprints pairs every anchor peak i with the peaks in
// [i, i+neighborhood) and tags all of them with the hash of (i, i+neighborhood).
// Each eligible anchor yields exactly neighborhood fingerprints; fewer than
// neighborhood+1 peaks yields none. The input slice is not reordered.
func GenerateFingerprints(peaks []Peak, neighborhood int) []models.Fingerprint {
	if neighborhood < 1 || len(peaks) <= neighborhood {
		return nil
	}

	sorted := slices.Clone(peaks)
	SortPeaks(sorted)

	anchors := len(sorted) - neighborhood
	fps := make([]models.Fingerprint, 0, anchors*neighborhood)
	for i := 0; i < anchors; i++ {
		anchor := sorted[i]
		anchorAddr := BuildAddress(anchor, sorted[i+neighborhood])
		anchorTime := uint32(math.Round(anchor.Time * 1000))

		for j := i; j < i+neighborhood; j++ {
			fps = append(fps, models.Fingerprint{
				Address:       BuildAddress(anchor, sorted[j]),
				AnchorAddress: anchorAddr,
				AnchorTime:    anchorTime,
			})
		}
	}
	return fps
}

// Records binds fingerprints to a song for storage.
func Records(fps []models.Fingerprint, songID uint32) []models.FingerprintRecord {
	out := make([]models.FingerprintRecord, len(fps))
	for i, fp := range fps {
		out[i] = models.FingerprintRecord{Fingerprint: fp, SongID: songID}
	}
	return out
}
