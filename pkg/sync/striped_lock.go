package sync

import (
	"sort"
	base "sync"
)

const (
	ringPointsPerStripe = 200
)

// StripedLock maps an unbounded key space, like account addresses, onto a
// fixed number of locks. Unrelated keys may share a stripe.
type StripedLock struct {
	locks []base.RWMutex
	ring  *stripeRing
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newStripeRing(int(stripes), ringPointsPerStripe),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.stripe(key)]
}

// GetAll gets the distinct locks for a set of keys, ordered by stripe. Any two
// callers locking the results in order acquire shared stripes in the same
// sequence.
func (l *StripedLock) GetAll(keys ...[]byte) []*base.RWMutex {
	seen := make(map[int]struct{})
	stripes := make([]int, 0, len(keys))
	for _, key := range keys {
		stripe := l.stripe(key)
		if _, ok := seen[stripe]; ok {
			continue
		}
		seen[stripe] = struct{}{}
		stripes = append(stripes, stripe)
	}

	sort.Ints(stripes)

	locks := make([]*base.RWMutex, len(stripes))
	for i, stripe := range stripes {
		locks[i] = &l.locks[stripe]
	}
	return locks
}

func (l *StripedLock) stripe(key []byte) int {
	return l.ring.stripe(key)
}
