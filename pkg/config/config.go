// Package config defines runtime tunables that can be overridden without a
// redeploy, eg. commit retry limits and per payer rate limits.
package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoValue  = errors.New("config: no value set")
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped source of a single value.
type Config interface {
	// Get returns the current value, or ErrNoValue when none is set.
	Get(ctx context.Context) (interface{}, error)

	Shutdown()
}

// Typed is a Config decoded to T. Get never fails: it falls back to the last
// good value, or the default when no value was ever set.
type Typed[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

type (
	Bool     = Typed[bool]
	Uint64   = Typed[uint64]
	Float64  = Typed[float64]
	Duration = Typed[time.Duration]
)
