package hll

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

const (
	// serialVersion is written into the high nibble of the first header byte.
	serialVersion = 1

	// denseType is written into the low nibble of the first header byte.  It
	// matches the "full" type of the aggregateknowledge storage format.
	denseType = 4

	headerBytes = 2
)

// ErrInsufficientBytes is returned by FromBytes in cases where the provided
// byte slice is truncated or longer than the settings allow.
var ErrInsufficientBytes = errors.New("insufficient bytes to deserialize Hll")

// ToBytes returns a byte slice with the serialized Hll value.  The first byte
// holds the version and storage type, the second the register width and log2m,
// and the rest the packed register words as 4 byte big endian values.  The
// zero register count is not written, FromBytes recomputes it.  Neither is the
// insertion count.
func (h *Hll) ToBytes() []byte {

	h.initOrPanic()

	bytes := make([]byte, headerBytes+h.storage.sizeInBytes())

	bytes[0] = (serialVersion << 4) | denseType
	bytes[1] = byte(((h.settings.regwidth - 1) << 5) | h.settings.log2m)

	writeWords(bytes[headerBytes:], h.storage)

	return bytes
}

// FromBytes deserializes the provided byte slice into an Hll.  It will return
// an error if the version is anything other than 1, if the leading bytes
// specify an invalid configuration, or if the payload length does not match the
// configuration.
func FromBytes(bytes []byte) (Hll, error) {

	if len(bytes) < headerBytes {
		return Hll{}, ErrInsufficientBytes
	}

	version, storageType := int(bytes[0]>>4), int(bytes[0]&0xf)
	if version != serialVersion {
		return Hll{}, fmt.Errorf("unsupported Hll version: %d", version)
	}

	if storageType != denseType {
		return Hll{}, fmt.Errorf("invalid Hll type: %d", storageType)
	}

	regwidth, log2m := (bytes[1]>>5)+1, bytes[1]&0x1f

	settings, err := Settings{Log2m: int(log2m), Regwidth: int(regwidth)}.toInternal()
	if err != nil {
		return Hll{}, err
	}

	// trim off the header bytes and ensure that every word is accounted for.
	payload := bytes[headerBytes:]
	if len(payload) != 4*settings.wordsCapacity {
		return Hll{}, errors.Wrapf(ErrInsufficientBytes, "expected %d payload bytes but got %d", 4*settings.wordsCapacity, len(payload))
	}

	words := make([]uint32, settings.wordsCapacity)
	readWords(words, payload)

	return fromWords(settings, words)
}

// MarshalBinary implements encoding.BinaryMarshaler using ToBytes.
func (h *Hll) MarshalBinary() ([]byte, error) {
	return h.ToBytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using FromBytes.  The
// Hasher of the receiver is kept.
func (h *Hll) UnmarshalBinary(data []byte) error {
	decoded, err := FromBytes(data)
	if err != nil {
		return err
	}
	decoded.hasher = h.hasher
	*h = decoded
	return nil
}

// jsonableHll is the JSON form of an Hll.  Log2m and Regwidth duplicate the
// serialized header to keep the document readable.
type jsonableHll struct {
	Log2m    int    `json:"p"`
	Regwidth int    `json:"b"`
	M        string `json:"M"`
}

// MarshalJSON writes the snappy compressed, URL-safe base64 encoded ToBytes
// form of the Hll.
func (h *Hll) MarshalJSON() ([]byte, error) {
	h.initOrPanic()
	return json.Marshal(&jsonableHll{
		Log2m:    h.settings.log2m,
		Regwidth: h.settings.regwidth,
		M:        string(snappyB64(h.ToBytes())),
	})
}

// UnmarshalJSON reads the form written by MarshalJSON.  The Hasher of the
// receiver is kept.
func (h *Hll) UnmarshalJSON(buf []byte) error {
	j := jsonableHll{}

	if err := json.Unmarshal(buf, &j); err != nil {
		return err
	}

	raw, err := unsnappyB64([]byte(j.M))
	if err != nil {
		return errors.Wrap(err, "decoding registers")
	}

	decoded, err := FromBytes(raw)
	if err != nil {
		return err
	}

	if decoded.settings.log2m != j.Log2m || decoded.settings.regwidth != j.Regwidth {
		return fmt.Errorf("settings p=%d b=%d do not match encoded registers p=%d b=%d",
			j.Log2m, j.Regwidth, decoded.settings.log2m, decoded.settings.regwidth)
	}

	decoded.hasher = h.hasher
	*h = decoded
	return nil
}

// Compress the input using snappy and encode the result using URL-safe base64.
func snappyB64(in []byte) []byte {
	compressed := snappy.Encode(nil, in)
	outBuf := make([]byte, base64.URLEncoding.EncodedLen(len(compressed)))
	base64.URLEncoding.Encode(outBuf, compressed)
	return outBuf
}

// The inverse of snappyB64.
func unsnappyB64(in []byte) ([]byte, error) {
	unBase64ed := make([]byte, base64.URLEncoding.DecodedLen(len(in)))
	n, err := base64.URLEncoding.Decode(unBase64ed, in)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, unBase64ed[:n])
}
