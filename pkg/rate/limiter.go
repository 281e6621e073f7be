// Package rate throttles work per key, such as a fee payer address.
package rate

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/code-payments/todo-server/pkg/cache"
)

// DefaultMaxTrackedKeys bounds how many keys NewLocalRateLimiter keeps a
// bucket for. The least recently seen keys are forgotten first.
const DefaultMaxTrackedKeys = 100_000

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

type localRateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets cache.Cache
}

// NewLocalRateLimiter returns an in memory limiter that gives each key its
// own token bucket refilling at limit per second. The burst matches the
// per-second limit, with a floor of one.
func NewLocalRateLimiter(limit rate.Limit) Limiter {
	return NewLocalRateLimiterWithCapacity(limit, DefaultMaxTrackedKeys)
}

// NewLocalRateLimiterWithCapacity is NewLocalRateLimiter tracking at most
// maxKeys buckets. A forgotten key starts over with a full bucket.
func NewLocalRateLimiterWithCapacity(limit rate.Limit, maxKeys int) Limiter {
	return &localRateLimiter{
		limit:   limit,
		burst:   max(1, int(limit)),
		buckets: cache.NewCache(maxKeys),
	}
}

// Allow implements Limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.buckets.Retrieve(key); ok {
		return cached.(*rate.Limiter).Allow(), nil
	}

	bucket := rate.NewLimiter(l.limit, l.burst)
	if err := l.buckets.Insert(key, bucket, 1); err != nil {
		return false, err
	}
	return bucket.Allow(), nil
}

// NoLimiter never limits operations
type NoLimiter struct{}

// Allow implements Limiter.Allow.
func (NoLimiter) Allow(string) (bool, error) {
	return true, nil
}
