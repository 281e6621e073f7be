package wrapper

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/todo-server/pkg/config"
	"github.com/code-payments/todo-server/pkg/config/memory"
)

func TestUint64Config_MaxCommitAttempts(t *testing.T) {
	ctx := context.Background()
	override := memory.NewConfig(nil)
	attempts := NewUint64Config(override, 5)

	val, err := attempts.GetSafe(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, val)

	override.SetValue(uint64(8))
	assert.EqualValues(t, 8, attempts.Get(ctx))

	override.SetValue(uint(3))
	assert.EqualValues(t, 3, attempts.Get(ctx))

	// Env values arrive as text
	override.SetValue([]byte("12"))
	assert.EqualValues(t, 12, attempts.Get(ctx))

	// A bad value keeps the last good one
	override.SetValue([]byte("-1"))
	val, err = attempts.GetSafe(ctx)
	require.Error(t, err)
	assert.EqualValues(t, 12, val)

	override.SetValue(int64(7))
	val, err = attempts.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.EqualValues(t, 12, val)

	override.SetError(errors.New("config store unavailable"))
	val, err = attempts.GetSafe(ctx)
	require.Error(t, err)
	assert.EqualValues(t, 12, val)

	// Clearing the override restores the default
	override.SetError(nil)
	override.ClearValue()
	assert.EqualValues(t, 5, attempts.Get(ctx))

	attempts.Shutdown()
	_, err = attempts.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestDurationConfig_CommitBackoff(t *testing.T) {
	ctx := context.Background()
	override := memory.NewConfig(nil)
	backoff := NewDurationConfig(override, 25*time.Millisecond)

	assert.Equal(t, 25*time.Millisecond, backoff.Get(ctx))

	override.SetValue([]byte("250ms"))
	assert.Equal(t, 250*time.Millisecond, backoff.Get(ctx))

	override.SetValue(time.Second)
	assert.Equal(t, time.Second, backoff.Get(ctx))

	override.SetValue([]byte("soon"))
	val, err := backoff.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, time.Second, val)

	override.SetValue(int64(time.Minute))
	val, err = backoff.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, time.Second, val)

	override.ClearValue()
	assert.Equal(t, 25*time.Millisecond, backoff.Get(ctx))
}

func TestBoolConfig_EnableAirdrops(t *testing.T) {
	ctx := context.Background()
	override := memory.NewConfig(nil)
	airdrops := NewBoolConfig(override, false)

	assert.False(t, airdrops.Get(ctx))

	for _, raw := range []string{"true", "1", "T"} {
		override.SetValue([]byte(raw))
		assert.True(t, airdrops.Get(ctx), raw)
	}

	override.SetValue([]byte("maybe"))
	val, err := airdrops.GetSafe(ctx)
	require.Error(t, err)
	assert.True(t, val)

	override.SetValue(false)
	assert.False(t, airdrops.Get(ctx))

	override.SetValue("true")
	_, err = airdrops.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
}

func TestFloat64Config_PayerRateLimit(t *testing.T) {
	ctx := context.Background()
	override := memory.NewConfig(nil)
	limit := NewFloat64Config(override, 5)

	assert.Equal(t, 5.0, limit.Get(ctx))

	override.SetValue([]byte("0.5"))
	assert.Equal(t, 0.5, limit.Get(ctx))

	override.SetValue(1000.0)
	assert.Equal(t, 1000.0, limit.Get(ctx))

	override.SetValue(float32(2))
	val, err := limit.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, 1000.0, val)

	override.ClearValue()
	assert.Equal(t, 5.0, limit.Get(ctx))
}
