package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("k", "v", "serpapi")

	e, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", e.Value)
	assert.Equal(t, "serpapi", e.Source)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[[]int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", []int{1}, "herkey")
	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_EvictsOldest(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int](2, time.Hour)
	c.now = func() time.Time { return now }

	c.Set("a", 1, "")
	now = now.Add(time.Second)
	c.Set("b", 2, "")
	now = now.Add(time.Second)
	c.Set("c", 3, "")

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	// Overwriting an existing key does not evict.
	c.Set("b", 20, "")
	assert.Equal(t, 2, c.Size())
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	c := New[string](10, 0)
	c.Set("k", "v", "")
	assert.Equal(t, 0, c.Size())
}

func TestCache_DeleteClear(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("a", "1", "")
	c.Set("b", "2", "")
	c.Delete("a")
	assert.Equal(t, 1, c.Size())
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestKey(t *testing.T) {
	assert.Len(t, Key("a", "b"), 16)
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", ""), Key("a", "b"))
}
