package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitMissAndExpiry(t *testing.T) {
	now := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache[string]()
	c.now = func() time.Time { return now }

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v", 30*time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	// valid strictly before the deadline
	now = now.Add(30*time.Second - time.Nanosecond)
	_, ok = c.Get("k")
	assert.True(t, ok)

	// dead exactly at the deadline
	now = now.Add(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCacheOverwriteAndClear(t *testing.T) {
	c := NewCache[int]()
	c.Set("a", 1, time.Minute)
	c.Set("a", 2, time.Minute)
	c.Set("b", 3, time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("a")
	assert.False(t, ok)
}
