package hll

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/stretchr/testify/assert"
)

func Test_Hashers(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		[]byte("hello world"),
		make([]byte, 1024),
	}

	key := SipHasher{K0: 1, K1: 2}

	for _, in := range inputs {
		assert.Equal(t, siphash.Hash(0x0706050403020100, 0x0f0e0d0c0b0a0908, in), DefaultHasher.Sum64(in))
		assert.Equal(t, siphash.Hash(1, 2, in), key.Sum64(in))
		assert.Equal(t, xxhash.Sum64(in), XXHasher{}.Sum64(in))
	}

	// keys matter.
	assert.NotEqual(t, DefaultHasher.Sum64([]byte("a")), key.Sum64([]byte("a")))
}

func Test_HasherFunc(t *testing.T) {
	var called []byte
	h := HasherFunc(func(b []byte) uint64 {
		called = b
		return 42
	})

	assert.Equal(t, uint64(42), h.Sum64([]byte("x")))
	assert.Equal(t, []byte("x"), called)
}

func BenchmarkSipHasher(b *testing.B) {
	in := []byte("https://example.com/some/path")
	b.SetBytes(int64(len(in)))
	for i := 0; i < b.N; i++ {
		DefaultHasher.Sum64(in)
	}
}

func BenchmarkXXHasher(b *testing.B) {
	in := []byte("https://example.com/some/path")
	b.SetBytes(int64(len(in)))
	for i := 0; i < b.N; i++ {
		XXHasher{}.Sum64(in)
	}
}
