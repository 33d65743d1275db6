package hll

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// Hasher digests an arbitrary value into the 64 bit hash that drives register
// selection.  Implementations must be stateless: the same input has to produce
// the same digest for as long as the Hlls built with it are merged or compared.
//
// Swapping the Hasher changes the numeric results of an Hll but none of its
// invariants.  Hlls built with different Hashers should not be merged.
type Hasher interface {
	Sum64(b []byte) uint64
}

// HasherFunc adapts an ordinary function to the Hasher interface.
type HasherFunc func(b []byte) uint64

// Sum64 calls f(b).
func (f HasherFunc) Sum64(b []byte) uint64 {
	return f(b)
}

// SipHasher is a keyed SipHash-2-4 Hasher.
type SipHasher struct {
	K0, K1 uint64
}

// Sum64 returns the SipHash-2-4 digest of b under the key (K0, K1).
func (h SipHasher) Sum64(b []byte) uint64 {
	return siphash.Hash(h.K0, h.K1, b)
}

// XXHasher is an unkeyed xxHash64 Hasher.  It is faster than SipHasher but
// offers no protection against adversarial inputs.
type XXHasher struct{}

// Sum64 returns the xxHash64 digest of b.
func (XXHasher) Sum64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// DefaultHasher is used by every Hll that has not been given a Hasher.
var DefaultHasher Hasher = SipHasher{
	K0: 0x0706050403020100,
	K1: 0x0f0e0d0c0b0a0908,
}
