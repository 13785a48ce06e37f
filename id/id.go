// Package id implements the fixed-width identifier and XOR-distance
// primitives the Kademlia routing table and lookup engine are built on.
//
// Identifiers are arbitrary-precision unsigned integers of a configurable
// bit width, wrapping math/big so the same type serves both the production
// 160-bit node-id space and the much narrower widths (8-16 bits) used to
// exercise routing-table behavior in tests without generating huge bucket
// arrays.
package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ID is an unsigned integer of a fixed bit Width, used for node
// identifiers, lookup targets, and stored-value keys.
type ID struct {
	v     *big.Int
	Width int
}

// New constructs an ID of the given width from an unsigned integer value.
// The value is reduced mod 2^width.
func New(value uint64, width int) ID {
	v := new(big.Int).SetUint64(value)
	return ID{v: mod(v, width), Width: width}
}

// FromBigInt constructs an ID of the given width from an arbitrary-precision
// value, reducing it mod 2^width.
func FromBigInt(value *big.Int, width int) ID {
	return ID{v: mod(value, width), Width: width}
}

// NewRandom generates a cryptographically random identifier of the given
// bit width. Any width between 1 and 160 bits must be supported, to allow
// debug-sized routing tables in tests and tooling.
func NewRandom(width int) (ID, error) {
	if width <= 0 {
		return ID{}, fmt.Errorf("id: width must be positive, got %d", width)
	}
	byteLen := (width + 7) / 8
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return ID{}, fmt.Errorf("id: generating random bits: %w", err)
	}
	v := new(big.Int).SetBytes(buf)
	return ID{v: mod(v, width), Width: width}, nil
}

func mod(v *big.Int, width int) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(width))
	mask.Sub(mask, big.NewInt(1))
	return new(big.Int).And(v, mask)
}

// Equal reports whether two identifiers have the same value. Width is not
// compared; callers are expected to operate within a single width domain.
func (a ID) Equal(b ID) bool {
	return a.v != nil && b.v != nil && a.v.Cmp(b.v) == 0
}

// Xor returns the XOR distance between a and b, as an ID of the same width.
func (a ID) Xor(b ID) ID {
	return ID{v: new(big.Int).Xor(a.v, b.v), Width: a.Width}
}

// Cmp compares the unsigned integer value of two distances/identifiers,
// returning -1, 0, or +1 as with big.Int.Cmp.
func (a ID) Cmp(b ID) int {
	return a.v.Cmp(b.v)
}

// BitLen returns the number of bits required to represent the value, i.e.
// floor(log2(v))+1 for v>0, and 0 for v==0.
func (a ID) BitLen() int {
	return a.v.BitLen()
}

// BucketIndex returns floor(log2(distance)), clamped to 0 when the distance
// is 0 (i.e. when the two identifiers are equal). This is the bucket-index
// rule the routing table uses to place a contact, lifted onto ID so both
// the routing table and tests can share one implementation.
func (a ID) BucketIndex() int {
	bits := a.BitLen()
	if bits == 0 {
		return 0
	}
	return bits - 1
}

// Uint64 returns the low 64 bits of the identifier's value, primarily for
// logging and small-width test fixtures.
func (a ID) Uint64() uint64 {
	return a.v.Uint64()
}

// BigInt returns a copy of the identifier's underlying value.
func (a ID) BigInt() *big.Int {
	return new(big.Int).Set(a.v)
}

// String renders the identifier in hexadecimal, for use in log fields.
func (a ID) String() string {
	if a.v == nil {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", a.v)
}

// IsZero reports whether the identifier's value is the zero value
// (the big.Int has not been initialized, or is literally 0).
func (a ID) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}
