package fingerprint

import (
	"testing"
)

func TestAddressPackUnpack(t *testing.T) {
	tests := []Address{
		{0, 0, 0},
		{1, 2, 3},
		{511, 511, 16383},
		{300, 17, 4096},
	}

	for _, a := range tests {
		if got := UnpackAddress(a.Pack()); got != a {
			t.Errorf("UnpackAddress(Pack(%+v)) = %+v", a, got)
		}
	}
}

func TestAddressLayout(t *testing.T) {
	got := Address{AnchorFreq: 1, TargetFreq: 1, DeltaMs: 1}.Pack()
	want := uint32(1<<23 | 1<<14 | 1)
	if got != want {
		t.Errorf("Expected %#08x, got %#08x", want, got)
	}
}

func TestAddressFieldsDoNotBleed(t *testing.T) {
	const (
		anchorBits = uint32(freqMask) << anchorShift
		targetBits = uint32(freqMask) << targetShift
		deltaBits  = uint32(deltaMask)
	)
	base := Address{AnchorFreq: 100, TargetFreq: 200, DeltaMs: 300}

	tests := []struct {
		name    string
		vary    func(a Address, v uint32) Address
		allowed uint32
	}{
		{"anchor", func(a Address, v uint32) Address { a.AnchorFreq = v; return a }, anchorBits},
		{"target", func(a Address, v uint32) Address { a.TargetFreq = v; return a }, targetBits},
		{"delta", func(a Address, v uint32) Address { a.DeltaMs = v; return a }, deltaBits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range []uint32{0, 1, 255, 511, 512, 16383, 16384, 1 << 31, 0xffffffff} {
				diff := base.Pack() ^ tt.vary(base, v).Pack()
				if diff&^tt.allowed != 0 {
					t.Errorf("value %d changed bits %#08x outside field %#08x", v, diff, tt.allowed)
				}
			}
		})
	}
}

func TestAddressTruncatesOverflow(t *testing.T) {
	if got := UnpackAddress(Address{AnchorFreq: 512 + 7}.Pack()).AnchorFreq; got != 7 {
		t.Errorf("Expected anchor freq to wrap to 7, got %d", got)
	}
	if got := UnpackAddress(Address{TargetFreq: 1024}.Pack()).TargetFreq; got != 0 {
		t.Errorf("Expected target freq to wrap to 0, got %d", got)
	}
	if got := UnpackAddress(Address{DeltaMs: 16384 + 5}.Pack()).DeltaMs; got != 5 {
		t.Errorf("Expected delta to wrap to 5, got %d", got)
	}
}

func TestBuildAddress(t *testing.T) {
	a := Peak{Time: 0.5, Freq: 42}
	b := Peak{Time: 0.75, Freq: 17}

	got := UnpackAddress(BuildAddress(a, b))
	want := Address{AnchorFreq: 42, TargetFreq: 17, DeltaMs: 250}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if BuildAddress(a, b) != BuildAddress(a, b) {
		t.Error("BuildAddress is not deterministic")
	}

	// Same geometry shifted in time hashes identically.
	shifted := BuildAddress(Peak{Time: 10.5, Freq: 42}, Peak{Time: 10.75, Freq: 17})
	if shifted != BuildAddress(a, b) {
		t.Error("Time-shifted pair produced a different address")
	}
}

func TestBuildAddressTruncatesDelta(t *testing.T) {
	got := UnpackAddress(BuildAddress(Peak{Time: 0}, Peak{Time: 0.0129})).DeltaMs
	if got != 12 {
		t.Errorf("Expected truncated delta 12, got %d", got)
	}
}
