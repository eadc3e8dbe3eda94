package models

// Fingerprint is one peak-pair hash produced for an anchor peak.
// Every anchor yields NeighborhoodSize fingerprints sharing the same
// AnchorAddress and AnchorTime.
type Fingerprint struct {
	Address       uint32 // packed (anchor freq, target freq, delta ms)
	AnchorAddress uint32 // hash of the anchor and the last peak of its zone
	AnchorTime    uint32 // anchor time in milliseconds
}

// FingerprintRecord is the persisted unit: a Fingerprint owned by a song.
// (Address, AnchorAddress, AnchorTime, SongID) is unique in every store.
type FingerprintRecord struct {
	Fingerprint
	SongID uint32
}

// Couple groups retrieved records by neighborhood during matching.
type Couple struct {
	AnchorAddress uint32
	AnchorTime    uint32
	SongID        uint32
}

// Couple returns the grouping key of r.
func (r FingerprintRecord) Couple() Couple {
	return Couple{
		AnchorAddress: r.AnchorAddress,
		AnchorTime:    r.AnchorTime,
		SongID:        r.SongID,
	}
}
