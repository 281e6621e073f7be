// Package shortvec implements the compact length prefix used in transaction
// encodings: 7 bits per byte, least significant group first, with the high
// bit marking that another byte follows. Lengths are limited to a uint16.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

var (
	ErrLengthOutOfRange = errors.Errorf("length must be within [0, %d]", math.MaxUint16)
	ErrMalformed        = errors.New("malformed shortvec length")
)

// EncodeLen writes n to w and returns the number of bytes written.
func EncodeLen(w io.Writer, n int) (int, error) {
	if n < 0 || n > math.MaxUint16 {
		return 0, ErrLengthOutOfRange
	}

	var encoded [maxEncodedLen]byte
	size := 0
	for {
		group := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			encoded[size] = group
			size++
			break
		}
		encoded[size] = group | 0x80
		size++
	}

	return w.Write(encoded[:size])
}

// DecodeLen reads a length written by EncodeLen from r.
func DecodeLen(r io.Reader) (int, error) {
	var next [1]byte
	value := 0

	for i := 0; i < maxEncodedLen; i++ {
		if _, err := io.ReadFull(r, next[:]); err != nil {
			return 0, err
		}

		value |= int(next[0]&0x7f) << (7 * i)
		if next[0]&0x80 == 0 {
			if value > math.MaxUint16 {
				return 0, ErrLengthOutOfRange
			}
			return value, nil
		}
	}

	return 0, ErrMalformed
}
