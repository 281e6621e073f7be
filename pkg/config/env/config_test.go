package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/todo-server/pkg/config"
)

func TestConfig_ReadsUppercasedKey(t *testing.T) {
	t.Setenv("LEDGER_RUNTIME_COMMIT_BACKOFF", "40ms")

	v, err := NewConfig("ledger_runtime_commit_backoff").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("40ms"), v)
}

func TestConfig_Unset(t *testing.T) {
	t.Setenv("LEDGER_RUNTIME_MAX_COMMIT_ATTEMPTS", "")

	v, err := NewConfig("LEDGER_RUNTIME_MAX_COMMIT_ATTEMPTS").Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedConfigs(t *testing.T) {
	ctx := context.Background()
	t.Setenv("LEDGER_RUNTIME_MAX_COMMIT_ATTEMPTS", "9")
	t.Setenv("LEDGER_RUNTIME_COMMIT_BACKOFF", "1s")
	t.Setenv("LEDGER_RUNTIME_ENABLE_AIRDROPS", "true")
	t.Setenv("LEDGER_SERVICE_MAX_TRANSACTIONS_PER_PAYER_PER_SECOND", "2.5")

	assert.EqualValues(t, 9, NewUint64Config("LEDGER_RUNTIME_MAX_COMMIT_ATTEMPTS", 5).Get(ctx))
	assert.Equal(t, time.Second, NewDurationConfig("LEDGER_RUNTIME_COMMIT_BACKOFF", time.Millisecond).Get(ctx))
	assert.True(t, NewBoolConfig("LEDGER_RUNTIME_ENABLE_AIRDROPS", false).Get(ctx))
	assert.Equal(t, 2.5, NewFloat64Config("LEDGER_SERVICE_MAX_TRANSACTIONS_PER_PAYER_PER_SECOND", 5).Get(ctx))

	// Unset keys fall back to the default
	assert.EqualValues(t, 100, NewUint64Config("LEDGER_SERVICE_TODO_PAGE_SIZE_UNSET", 100).Get(ctx))
}
