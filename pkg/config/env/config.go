// Package env reads config values from environment variables. Keys are
// upper cased, so ledger_runtime_enable_airdrops reads
// LEDGER_RUNTIME_ENABLE_AIRDROPS.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/todo-server/pkg/config"
	"github.com/code-payments/todo-server/pkg/config/wrapper"
)

// variable is read once, when it is created.
type variable []byte

func NewConfig(key string) config.Config {
	return variable(os.Getenv(strings.ToUpper(key)))
}

// Get implements config.Config.Get
func (v variable) Get(_ context.Context) (interface{}, error) {
	if len(v) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(v), nil
}

// Shutdown implements config.Config.Shutdown
func (variable) Shutdown() {}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
