package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFor_EventuallyTrue(t *testing.T) {
	var refills atomic.Int32
	require.NoError(t, WaitFor(time.Second, 10*time.Millisecond, func() bool {
		return refills.Add(1) >= 3
	}))
	assert.EqualValues(t, 3, refills.Load())
}

func TestWaitFor_Timeout(t *testing.T) {
	start := time.Now()
	err := WaitFor(50*time.Millisecond, 10*time.Millisecond, func() bool { return false })
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitFor_InvalidInterval(t *testing.T) {
	check := func() bool { return true }
	assert.Error(t, WaitFor(50*time.Millisecond, 100*time.Millisecond, check))
	assert.Error(t, WaitFor(50*time.Millisecond, 0, check))
}
