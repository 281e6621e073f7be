package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/todo-server/pkg/config"
)

func TestConfig_ValueLifecycle(t *testing.T) {
	ctx := context.Background()

	backoff := NewConfig(nil)
	_, err := backoff.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	backoff.SetValue(25 * time.Millisecond)
	val, err := backoff.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, val)

	backoff.ClearValue()
	_, err = backoff.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestConfig_SetError(t *testing.T) {
	ctx := context.Background()
	errUnavailable := errors.New("config store unavailable")

	airdrops := NewConfig(true)
	airdrops.SetError(errUnavailable)
	_, err := airdrops.Get(ctx)
	assert.Equal(t, errUnavailable, err)

	airdrops.SetError(nil)
	val, err := airdrops.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, val)
}

func TestConfig_Shutdown(t *testing.T) {
	pageSize := NewConfig(uint64(50))
	pageSize.SetError(errors.New("ignored after shutdown"))
	pageSize.Shutdown()

	_, err := pageSize.Get(context.Background())
	assert.Equal(t, config.ErrShutdown, err)
}
