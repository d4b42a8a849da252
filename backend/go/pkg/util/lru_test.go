package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewLRU[string, int](2, 0)
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpiresEntries(t *testing.T) {
	c, err := NewLRU[string, int](4, time.Minute)
	require.NoError(t, err)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", 1)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUUpdateAndPurge(t *testing.T) {
	c, err := NewLRU[int, string](3, 0)
	require.NoError(t, err)
	c.Put(1, "x")
	c.Put(1, "y")
	v, _ := c.Get(1)
	assert.Equal(t, "y", v)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewLRURejectsZeroCapacity(t *testing.T) {
	_, err := NewLRU[string, int](0, 0)
	assert.Error(t, err)
}
