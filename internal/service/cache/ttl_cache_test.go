package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTTLCacheHitWithinTTL(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string](WithClock(clk.now))

	c.Set("k", "v")
	clk.advance(29 * time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLCacheExpiresAndEvicts(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTLCache[int](WithClock(clk.now))

	c.Set("k", 7)
	clk.advance(DefaultTTL)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheSetOverwritesAndRestartsTTL(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string](WithClock(clk.now), WithTTL(time.Minute))

	c.Set("k", "old")
	clk.advance(50 * time.Second)
	c.Set("k", "new")
	clk.advance(50 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache[[]byte]()
	got, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, DefaultTTL, c.TTL())
}

func TestCreateKey(t *testing.T) {
	k, err := CreateKey("a", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "a:5861859", k)

	k, err = CreateKey("indicator", map[string]string{"indicator": "CPI", "currency": "USD"})
	require.NoError(t, err)
	assert.Equal(t, "indicator:2560047889", k)

	again, err := CreateKey("indicator", map[string]string{"currency": "USD", "indicator": "CPI"})
	require.NoError(t, err)
	assert.Equal(t, k, again)

	other, err := CreateKey("indicator", map[string]string{"currency": "EUR", "indicator": "CPI"})
	require.NoError(t, err)
	assert.NotEqual(t, k, other)
}

func TestCreateKeyRejectsUnserializable(t *testing.T) {
	_, err := CreateKey("x", make(chan int))
	assert.ErrorIs(t, err, ErrNotSerializable)
}
