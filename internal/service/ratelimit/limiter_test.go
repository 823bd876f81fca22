package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a", 2, 1))
	assert.True(t, l.Allow("a", 2, 1))
	assert.False(t, l.Allow("a", 2, 1))

	// other keys have their own bucket
	assert.True(t, l.Allow("b", 2, 1))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a", 2, 1))
	assert.False(t, l.Allow("a", 2, 1))
}
