package fingerprint

const (
	FreqBits  = 9
	DeltaBits = 14

	freqMask  = 1<<FreqBits - 1
	deltaMask = 1<<DeltaBits - 1

	targetShift = DeltaBits
	anchorShift = DeltaBits + FreqBits
)

// Address is the unpacked form of a 32-bit peak-pair hash:
//
//	bits 23-31  AnchorFreq (9 bits)
//	bits 14-22  TargetFreq (9 bits)
//	bits  0-13  DeltaMs    (14 bits)
//
// Values wider than their field are truncated to the low bits, so a
// frequency bin above 511 or a delta above 16383 ms aliases silently.
type Address struct {
	AnchorFreq uint32
	TargetFreq uint32
	DeltaMs    uint32
}

// Pack encodes the address into a single word.
func (a Address) Pack() uint32 {
	return (a.AnchorFreq&freqMask)<<anchorShift |
		(a.TargetFreq&freqMask)<<targetShift |
		a.DeltaMs&deltaMask
}

// UnpackAddress splits a packed word back into its fields.
func UnpackAddress(v uint32) Address {
	return Address{
		AnchorFreq: v >> anchorShift & freqMask,
		TargetFreq: v >> targetShift & freqMask,
		DeltaMs:    v & deltaMask,
	}
}

// BuildAddress hashes the geometry of two peaks: both frequency bins and
// the time from a to b in whole milliseconds (truncated).
func BuildAddress(a, b Peak) uint32 {
	delta := int64((b.Time - a.Time) * 1000)
	return Address{
		AnchorFreq: a.Freq,
		TargetFreq: b.Freq,
		DeltaMs:    uint32(delta),
	}.Pack()
}
