package fingerprint

import (
	"errors"
	"fmt"
	"math/bits"
)

// DefaultBitCount is the fingerprint length in bits.
const DefaultBitCount = 1024

// ErrInvalidBitCount is returned for bit counts that are not a positive
// multiple of 32.
var ErrInvalidBitCount = errors.New("fingerprint: bit count must be a positive multiple of 32")

// Result is the output of a Generator for one structure.
type Result struct {
	// Bits holds bit_count/8 bytes, least significant bit first.
	Bits []byte
	// Canonical is the canonical structure text.
	Canonical string
}

// Generator computes fingerprints. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(text string, alg Algorithm, trustInput bool) (Result, error)
	// BitCount returns the fingerprint length in bits.
	BitCount() int
}

// ValidateBitCount checks that n is usable as a fingerprint length.
func ValidateBitCount(n int) error {
	if n <= 0 || n%32 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBitCount, n)
	}
	return nil
}

// BitVector is a fingerprint bit set stored least significant bit first.
type BitVector []byte

// NewBitVector returns a zeroed vector of n bits. n must be a multiple of 8.
func NewBitVector(n int) BitVector {
	return make(BitVector, n/8)
}

// Len returns the number of bits.
func (v BitVector) Len() int {
	return len(v) * 8
}

// Set sets bit i.
func (v BitVector) Set(i int) {
	v[i>>3] |= 1 << (uint(i) & 7)
}

// Test reports whether bit i is set.
func (v BitVector) Test(i int) bool {
	return v[i>>3]&(1<<(uint(i)&7)) != 0
}

// Count returns the number of set bits.
func (v BitVector) Count() int {
	n := 0
	for _, b := range v {
		n += bits.OnesCount8(b)
	}
	return n
}

// Tanimoto returns the Tanimoto similarity of two equal-length vectors.
// Two empty vectors have similarity 0.
func Tanimoto(a, b BitVector) float64 {
	var common, union int
	for i := range a {
		common += bits.OnesCount8(a[i] & b[i])
		union += bits.OnesCount8(a[i] | b[i])
	}
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}
