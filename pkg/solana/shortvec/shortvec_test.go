package shortvec

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLen_KnownEncodings(t *testing.T) {
	for _, tc := range []struct {
		val     int
		encoded []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},                          // one signature
		{0x7f, []byte{0x7f}},                       // largest single byte length
		{0x80, []byte{0x80, 0x01}},                 // first two byte length
		{245, []byte{0xf5, 0x01}},                  // a todo record
		{1232, []byte{0xd0, 0x09}},                 // a full sized transaction
		{0x3fff, []byte{0xff, 0x7f}},               // largest two byte length
		{0x4000, []byte{0x80, 0x80, 0x01}},         // first three byte length
		{math.MaxUint16, []byte{0xff, 0xff, 0x03}}, // largest length
	} {
		var buf bytes.Buffer
		n, err := EncodeLen(&buf, tc.val)
		require.NoError(t, err)
		assert.Equal(t, len(tc.encoded), n, tc.val)
		assert.Equal(t, tc.encoded, buf.Bytes(), tc.val)

		decoded, err := DecodeLen(bytes.NewReader(tc.encoded))
		require.NoError(t, err)
		assert.Equal(t, tc.val, decoded)
	}
}

func TestEncodeLen_AllLengths(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i <= math.MaxUint16; i++ {
		_, err := EncodeLen(&buf, i)
		require.NoError(t, err)
	}

	// Lengths decode back in sequence from a single stream
	for i := 0; i <= math.MaxUint16; i++ {
		actual, err := DecodeLen(&buf)
		require.NoError(t, err)
		require.Equal(t, i, actual)
	}
	assert.Zero(t, buf.Len())
}

func TestEncodeLen_OutOfRange(t *testing.T) {
	_, err := EncodeLen(&bytes.Buffer{}, math.MaxUint16+1)
	assert.Equal(t, ErrLengthOutOfRange, err)

	_, err = EncodeLen(&bytes.Buffer{}, -1)
	assert.Equal(t, ErrLengthOutOfRange, err)
}

func TestDecodeLen_Invalid(t *testing.T) {
	_, err := DecodeLen(bytes.NewReader(nil))
	assert.Error(t, err)

	// Continuation bit set on the last available byte
	_, err = DecodeLen(bytes.NewReader([]byte{0x80}))
	assert.Error(t, err)

	_, err = DecodeLen(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x01}))
	assert.Equal(t, ErrMalformed, err)

	_, err = DecodeLen(bytes.NewReader([]byte{0xff, 0xff, 0x04}))
	assert.Equal(t, ErrLengthOutOfRange, err)
}
