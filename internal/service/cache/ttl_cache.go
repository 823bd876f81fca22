package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long analyses and market series stay fresh.
const DefaultTTL = 30 * time.Minute

type entry[T any] struct {
	v  T
	ts time.Time
}

// TTLCache is an in-memory cache whose entries expire a fixed time after
// being set. Expired entries are evicted lazily on read.
type TTLCache[T any] struct {
	mu  sync.Mutex
	m   map[string]entry[T]
	ttl time.Duration
	now func() time.Time
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func NewTTLCache[T any](opts ...Option) *TTLCache[T] {
	o := &options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return &TTLCache[T]{m: make(map[string]entry[T]), ttl: o.ttl, now: o.now}
}

// Get returns the value stored under key while it is younger than the TTL.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.ts) >= c.ttl {
		delete(c.m, key)
		return zero, false
	}
	return e.v, true
}

// Set stores v under key, restarting its TTL.
func (c *TTLCache[T]) Set(key string, v T) {
	c.mu.Lock()
	c.m[key] = entry[T]{v: v, ts: c.now()}
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included until they are read.
func (c *TTLCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// TTL returns the configured lifetime.
func (c *TTLCache[T]) TTL() time.Duration { return c.ttl }
