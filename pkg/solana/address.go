package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrInvalidPublicKey is returned when a seed set hashes onto the ed25519
	// curve and therefore can't be used as a program address.
	ErrInvalidPublicKey = errors.New("invalid public key")

	ErrNoViableBump = errors.New("no viable bump seed")
)

// CreateProgramAddress computes sha256(seeds || program || "ProgramDerivedAddress")
// and accepts the result only when it is off the ed25519 curve, so that no
// private key can ever sign for it. Records owned by a program live at these
// addresses.
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if err := validateSeeds(seeds); err != nil {
		return nil, err
	}

	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(program)
	h.Write([]byte(pdaMarker))

	var candidate [ed25519.PublicKeySize]byte
	copy(candidate[:], h.Sum(nil))

	if onCurve(&candidate) {
		return nil, ErrInvalidPublicKey
	}
	return candidate[:], nil
}

// FindProgramAddressAndBump searches bump seeds from 255 downward and returns
// the first address that lands off the curve, together with its bump. The
// bump is what a client appends as the final seed to recreate the address.
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := math.MaxUint8; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}

		address, err := CreateProgramAddress(program, withBump...)
		switch {
		case err == nil:
			return address, uint8(bump), nil
		case errors.Is(err, ErrInvalidPublicKey):
			continue
		default:
			return nil, 0, err
		}
	}

	return nil, 0, ErrNoViableBump
}

func validateSeeds(seeds [][]byte) error {
	if len(seeds) > maxSeeds {
		return ErrTooManySeeds
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return ErrMaxSeedLengthExceeded
		}
	}
	return nil
}

// onCurve reports whether b decodes as a compressed Edwards point. The
// standard library keeps its point type internal, hence edwards25519.
func onCurve(b *[ed25519.PublicKeySize]byte) bool {
	var point edwards25519.ExtendedGroupElement
	return point.FromBytes(b)
}
