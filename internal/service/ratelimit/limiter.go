package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key, e.g. per client IP and endpoint.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	now func() time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*rate.Limiter), now: time.Now} }

// Allow returns true if one token can be consumed for key. The bucket for a
// key is created on first use with the given capacity and refill rate.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		burst := int(capacity)
		if burst < 1 {
			burst = 1
		}
		b = rate.NewLimiter(rate.Limit(refillPerSec), burst)
		l.m[key] = b
	}
	now := l.now()
	l.mu.Unlock()
	return b.AllowN(now, 1)
}
