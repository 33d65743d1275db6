package hll

import "encoding/binary"

// divideRoundUp divides i by d, rounding up to the next whole number.
func divideRoundUp(i, d int) int {
	result := i / d
	if remainder := i % d; remainder > 0 {
		result++
	}
	return result
}

// writeWords writes each word into bytes as a 4 byte big endian value.  The
// slice must have room for at least 4*len(words) bytes.
func writeWords(bytes []byte, words []uint32) {
	for i, word := range words {
		binary.BigEndian.PutUint32(bytes[i*4:], word)
	}
}

// readWords reads len(words) big endian 4 byte values from bytes.
func readWords(words []uint32, bytes []byte) {
	for i := range words {
		words[i] = binary.BigEndian.Uint32(bytes[i*4:])
	}
}
