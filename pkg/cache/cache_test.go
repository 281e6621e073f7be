package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type derived struct {
	address string
	bump    uint8
}

func TestInsertAndRetrieve(t *testing.T) {
	c := NewCache(10)

	value := &derived{address: "profile:alice", bump: 254}
	require.NoError(t, c.Insert("profile:alice", value, 1))

	cached, ok := c.Retrieve("profile:alice")
	require.True(t, ok)
	assert.Same(t, value, cached.(*derived))

	_, ok = c.Retrieve("profile:bob")
	assert.False(t, ok)

	assert.Equal(t, 1, c.GetWeight())
	assert.Equal(t, 10, c.GetBudget())
}

func TestInsert_DuplicateKey(t *testing.T) {
	c := NewCache(10)

	first := &derived{address: "todo:0", bump: 255}
	require.NoError(t, c.Insert("todo:0", first, 1))
	assert.Equal(t, ErrKeyExists, c.Insert("todo:0", &derived{address: "todo:0", bump: 1}, 1))

	// The original entry is kept
	cached, ok := c.Retrieve("todo:0")
	require.True(t, ok)
	assert.Same(t, first, cached.(*derived))
	assert.Equal(t, 1, c.GetWeight())
}

func TestInsert_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Insert(fmt.Sprintf("todo:%d", i), i, 1))
	}

	// Touching the oldest entry makes todo:1 the least recently used
	_, ok := c.Retrieve("todo:0")
	require.True(t, ok)

	require.NoError(t, c.Insert("todo:3", 3, 1))
	assert.Equal(t, 3, c.GetWeight())

	_, ok = c.Retrieve("todo:1")
	assert.False(t, ok)
	for _, key := range []string{"todo:0", "todo:2", "todo:3"} {
		_, ok := c.Retrieve(key)
		assert.True(t, ok, key)
	}
}

func TestInsert_HeavyEntryEvictsSeveral(t *testing.T) {
	c := NewCache(4)

	require.NoError(t, c.Insert("a", "a", 1))
	require.NoError(t, c.Insert("b", "b", 1))
	require.NoError(t, c.Insert("c", "c", 1))
	require.NoError(t, c.Insert("heavy", "heavy", 3))

	assert.Equal(t, 4, c.GetWeight())
	for _, key := range []string{"a", "b"} {
		_, ok := c.Retrieve(key)
		assert.False(t, ok, key)
	}
	_, ok := c.Retrieve("c")
	assert.True(t, ok)

	// Evicted keys can be inserted again
	require.NoError(t, c.Insert("a", "a", 1))
	_, ok = c.Retrieve("heavy")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := NewCache(2)
	require.NoError(t, c.Insert("profile:alice", "alice", 1))

	c.Clear()

	_, ok := c.Retrieve("profile:alice")
	assert.False(t, ok)
	assert.Equal(t, 0, c.GetWeight())
	require.NoError(t, c.Insert("profile:alice", "alice", 1))
}
