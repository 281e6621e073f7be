package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// stripeRing consistently hashes keys, such as account addresses, onto a
// fixed set of stripe indexes. Every stripe owns several virtual points on
// the ring to even out the distribution.
type stripeRing struct {
	points *treemap.Map // int64 hash -> stripe

	// first is the stripe at the lowest point, where lookups past the
	// highest point wrap around to.
	first int
}

func newStripeRing(stripes, pointsPerStripe int) *stripeRing {
	points := treemap.NewWith(utils.Int64Comparator)

	var seed [8]byte
	for stripe := 0; stripe < stripes; stripe++ {
		binary.LittleEndian.PutUint64(seed[:], uint64(stripe))
		for point := 0; point < pointsPerStripe; point++ {
			points.Put(hashPoint(seed[:], uint32(point)), stripe)
		}
	}

	r := &stripeRing{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// stripe returns the stripe owning key.
func (r *stripeRing) stripe(key []byte) int {
	h, _ := murmur3.Sum128(key)
	if _, stripe := r.points.Ceiling(int64(h)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

func hashPoint(seed []byte, point uint32) int64 {
	hasher := murmur3.New128()
	hasher.Write(seed)
	hasher.Write(binary.LittleEndian.AppendUint32(nil, point))
	h, _ := hasher.Sum128()
	return int64(h)
}
