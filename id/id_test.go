package id

import "testing"

func TestXorDistanceSymmetricAndZero(t *testing.T) {
	a := New(0x55, 8)
	b := New(0xAA, 8)

	if a.Xor(a).Cmp(New(0, 8)) != 0 {
		t.Fatalf("distance to self must be zero")
	}
	if a.Xor(b).Cmp(b.Xor(a)) != 0 {
		t.Fatalf("xor distance must be symmetric")
	}
}

func TestBucketIndexClampsZeroDistance(t *testing.T) {
	self := New(0x10, 8)
	if got := self.Xor(self).BucketIndex(); got != 0 {
		t.Fatalf("bucket index for zero distance = %d, want 0", got)
	}
}

func TestBucketIndexBounds(t *testing.T) {
	// For all distances d >= 1 in an 8-bit space: 2^idx <= d < 2^(idx+1).
	for d := uint64(1); d < 256; d++ {
		dist := New(d, 8)
		idx := dist.BucketIndex()
		lower := uint64(1) << uint(idx)
		upper := uint64(1) << uint(idx+1)
		if d < lower || d >= upper {
			t.Fatalf("distance %d: bucket index %d violates 2^idx <= d < 2^(idx+1)", d, idx)
		}
	}
}

func TestNewRandomWidthBounds(t *testing.T) {
	for width := 1; width <= 9; width++ {
		got, err := NewRandom(width)
		if err != nil {
			t.Fatalf("NewRandom(%d): %v", width, err)
		}
		limit := uint64(1) << uint(width)
		if got.Uint64() >= limit {
			t.Fatalf("NewRandom(%d) = %d, want < %d", width, got.Uint64(), limit)
		}
	}
}

func TestEqualComparesValues(t *testing.T) {
	a := New(42, 160)
	b := New(42, 160)
	c := New(43, 160)

	if !a.Equal(b) {
		t.Fatalf("equal values must compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("different values must not compare equal")
	}
}
