package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/config"
)

// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// convertFunc turns a raw override into T. Raw env values arrive as []byte,
// while in memory overrides hold the native type.
type convertFunc[T any] func(raw interface{}) (T, error)

// typed adapts an untyped config.Config into one of the typed interfaces.
// Reads that fail fall back to the last value successfully observed.
type typed[T any] struct {
	override     config.Config
	defaultValue T
	convert      convertFunc[T]

	mu   sync.RWMutex
	last T
}

func newTyped[T any](override config.Config, defaultValue T, convert convertFunc[T]) *typed[T] {
	return &typed[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		last:         defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *typed[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.override.Get(ctx)
	if errors.Is(err, config.ErrNoValue) {
		c.remember(c.defaultValue)
		return c.defaultValue, nil
	}

	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()

	if err != nil {
		return last, err
	}

	value, err := c.convert(raw)
	if err != nil {
		return last, err
	}
	c.remember(value)
	return value, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *typed[T]) Get(ctx context.Context) T {
	value, _ := c.GetSafe(ctx)
	return value
}

// Shutdown signals the config to stop all underlying resources
func (c *typed[T]) Shutdown() {
	c.override.Shutdown()
}

func (c *typed[T]) remember(value T) {
	c.mu.Lock()
	c.last = value
	c.mu.Unlock()
}

// NewBoolConfig wraps override as a bool, accepting anything strconv.ParseBool does
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return newTyped(override, defaultValue, func(raw interface{}) (bool, error) {
		switch v := raw.(type) {
		case []byte:
			return strconv.ParseBool(string(v))
		case bool:
			return v, nil
		}
		return false, ErrUnsuportedConversion
	})
}

// NewUint64Config wraps override as a uint64. Used for sizes, counts and
// lamport amounts.
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newTyped(override, defaultValue, func(raw interface{}) (uint64, error) {
		switch v := raw.(type) {
		case []byte:
			return strconv.ParseUint(string(v), 10, 64)
		case uint64:
			return v, nil
		case uint:
			return uint64(v), nil
		}
		return 0, ErrUnsuportedConversion
	})
}

// NewFloat64Config wraps override as a float64
func NewFloat64Config(override config.Config, defaultValue float64) config.Float64 {
	return newTyped(override, defaultValue, func(raw interface{}) (float64, error) {
		switch v := raw.(type) {
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		case float64:
			return v, nil
		}
		return 0, ErrUnsuportedConversion
	})
}

// NewDurationConfig wraps override as a time.Duration. Text values use
// time.ParseDuration syntax, eg. "250ms".
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newTyped(override, defaultValue, func(raw interface{}) (time.Duration, error) {
		switch v := raw.(type) {
		case []byte:
			return time.ParseDuration(string(v))
		case time.Duration:
			return v, nil
		}
		return 0, ErrUnsuportedConversion
	})
}
