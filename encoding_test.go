package hll

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ToBytesHeader(t *testing.T) {

	tests := []struct {
		settings Settings
		header   []byte
	}{
		{Settings{Log2m: 11, Regwidth: 5}, []byte{0x14, 0x8b}},
		{Settings{Log2m: 4, Regwidth: 4}, []byte{0x14, 0x64}},
		{Settings{Log2m: 18, Regwidth: 6}, []byte{0x14, 0xb2}},
	}

	for _, tt := range tests {
		hll := mustNewHll(t, tt.settings)
		bytes := hll.ToBytes()
		assert.Equal(t, tt.header, bytes[:headerBytes], "%+v", tt.settings)
		assert.Len(t, bytes, headerBytes+4*mustInternal(t, tt.settings).wordsCapacity)
	}
}

func Test_ToBytesLayout(t *testing.T) {
	hll := mustNewHll(t, Settings{Log2m: 4, Regwidth: 5})

	// register 7 is the second register of the second word.
	hll.InsertHash(constructHllValue(4, 7, 3))

	assert.Equal(t, []byte{
		0x14, 0x84,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x60,
		0x00, 0x00, 0x00, 0x00,
	}, hll.ToBytes())
}

func Test_BytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(21))

	for _, s := range allSmallSettings {
		t.Run(fmt.Sprintf("Log2m_%d_Regwidth_%d", s.Log2m, s.Regwidth), func(t *testing.T) {
			hll := mustNewHll(t, s)
			for i := 0; i < 2*(1<<uint(s.Log2m)); i++ {
				hll.InsertHash(r.Uint64())
			}

			decoded, err := FromBytes(hll.ToBytes())
			require.NoError(t, err)

			assert.Equal(t, s, decoded.Settings())
			assert.True(t, hll.Equal(decoded))
			assert.Equal(t, hll.ZeroRegisters(), decoded.ZeroRegisters())
			assert.Equal(t, hll.Estimate(), decoded.Estimate())

			// the insertion count is not serialized.
			assert.Equal(t, uint64(0), decoded.Insertions())

			decoded.verify()
		})
	}
}

func Test_FromBytesErrors(t *testing.T) {
	hll := mustNewHll(t, Settings{Log2m: 4, Regwidth: 5})
	valid := hll.ToBytes()

	withHeader := func(b0, b1 byte) []byte {
		bytes := append([]byte(nil), valid...)
		bytes[0], bytes[1] = b0, b1
		return bytes
	}

	tests := []struct {
		label    string
		bytes    []byte
		cause    error
		contains string
	}{
		{
			label: "empty",
			bytes: nil,
			cause: ErrInsufficientBytes,
		},
		{
			label: "header only",
			bytes: valid[:1],
			cause: ErrInsufficientBytes,
		},
		{
			label: "truncated",
			bytes: valid[:len(valid)-1],
			cause: ErrInsufficientBytes,
		},
		{
			label: "trailing bytes",
			bytes: append(append([]byte(nil), valid...), 0, 0, 0, 0),
			cause: ErrInsufficientBytes,
		},
		{
			label:    "version",
			bytes:    withHeader(0x24, 0x84),
			contains: "version",
		},
		{
			label:    "type",
			bytes:    withHeader(0x13, 0x84),
			contains: "type",
		},
		{
			label:    "log2m",
			bytes:    withHeader(0x14, 0x83),
			contains: "Log2m is too small",
		},
		{
			label:    "regwidth",
			bytes:    withHeader(0x14, 0xe4),
			contains: "Regwidth is too large",
		},
		{
			label: "padding",
			bytes: append(append([]byte(nil), valid[:len(valid)-4]...), 0x00, 0x10, 0x00, 0x00),
			cause: ErrPadding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			_, err := FromBytes(tt.bytes)
			require.Error(t, err)
			if tt.cause != nil {
				assert.Equal(t, tt.cause, errors.Cause(err))
			}
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func Test_BinaryMarshaler(t *testing.T) {
	hll := mustNewHll(t, Settings{Log2m: 8, Regwidth: 6})
	for i := 0; i < 1000; i++ {
		hll.InsertUint64(uint64(i))
	}

	data, err := hll.MarshalBinary()
	require.NoError(t, err)

	decoded := Hll{}
	decoded.SetHasher(XXHasher{})
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.True(t, hll.Equal(decoded))
	assert.Equal(t, XXHasher{}, decoded.hasher)

	assert.Error(t, decoded.UnmarshalBinary(data[:3]))
}

func Test_JSONRoundTrip(t *testing.T) {
	type document struct {
		Name string `json:"name"`
		Hll  *Hll   `json:"hll"`
	}

	hll := mustNewHll(t, Settings{Log2m: 12, Regwidth: 5})
	for i := 0; i < 5000; i++ {
		hll.InsertUint64(uint64(i))
	}

	buf, err := json.Marshal(document{Name: "visitors", Hll: &hll})
	require.NoError(t, err)
	assert.Contains(t, string(buf), `"p":12`)
	assert.Contains(t, string(buf), `"b":5`)

	decoded := document{Hll: &Hll{}}
	decoded.Hll.SetHasher(XXHasher{})
	require.NoError(t, json.Unmarshal(buf, &decoded))

	assert.Equal(t, "visitors", decoded.Name)
	assert.True(t, hll.Equal(*decoded.Hll))
	assert.Equal(t, hll.ZeroRegisters(), decoded.Hll.ZeroRegisters())
	assert.Equal(t, XXHasher{}, decoded.Hll.hasher)
}

func Test_JSONErrors(t *testing.T) {
	hll := mustNewHll(t, Settings{Log2m: 4, Regwidth: 5})
	buf, err := hll.MarshalJSON()
	require.NoError(t, err)

	var j jsonableHll
	require.NoError(t, json.Unmarshal(buf, &j))

	{ // settings disagree with the encoded header
		mismatched := j
		mismatched.Log2m = 5
		doc, err := json.Marshal(mismatched)
		require.NoError(t, err)
		assert.Error(t, (&Hll{}).UnmarshalJSON(doc))
	}
	{ // not base64
		corrupt := j
		corrupt.M = "!!!"
		doc, err := json.Marshal(corrupt)
		require.NoError(t, err)
		assert.Error(t, (&Hll{}).UnmarshalJSON(doc))
	}
	{ // not json
		assert.Error(t, (&Hll{}).UnmarshalJSON([]byte("{")))
	}
}

func Test_snappyB64(t *testing.T) {
	in := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	out, err := unsnappyB64(snappyB64(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func BenchmarkToBytes(b *testing.B) {
	hll, _ := NewHll(Settings{Log2m: 14, Regwidth: 6})
	for i := 0; i < 100000; i++ {
		hll.InsertUint64(uint64(i))
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		hll.ToBytes()
	}
}

func BenchmarkFromBytes(b *testing.B) {
	hll, _ := NewHll(Settings{Log2m: 14, Regwidth: 6})
	for i := 0; i < 100000; i++ {
		hll.InsertUint64(uint64(i))
	}
	bytes := hll.ToBytes()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = FromBytes(bytes)
	}
}
