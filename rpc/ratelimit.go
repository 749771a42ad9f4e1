package rpc

import (
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter applies a per-client token bucket keyed by remote address.
// A zero rate disables limiting entirely.
type clientLimiter struct {
	mu       sync.Mutex
	perMin   float64
	burst    int
	visitors map[string]*rate.Limiter
}

func newClientLimiter(perMin float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		perMin:   perMin,
		burst:    burst,
		visitors: make(map[string]*rate.Limiter),
	}
}

func (c *clientLimiter) allow(client string) bool {
	if c == nil || c.perMin <= 0 {
		return true
	}
	c.mu.Lock()
	limiter, ok := c.visitors[client]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.perMin/60.0), c.burst)
		c.visitors[client] = limiter
	}
	c.mu.Unlock()
	return limiter.Allow()
}
