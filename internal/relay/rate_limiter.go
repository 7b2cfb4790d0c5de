// Package relay throttles inbound frames per connection with a token
// bucket sized from RateLimitConfig.
package relay

import (
	"math"
	"sync"
	"time"
)

// rateLimiter meters one connection's inbound frames. A full bucket permits
// a burst of frames at once; spent tokens come back continuously at
// burst-per-refill-interval. Frames over the limit are discarded by the
// caller, the connection itself is never closed for it.
type rateLimiter struct {
	mu     sync.Mutex
	burst  float64
	level  float64
	perSec float64
	last   time.Time
	now    func() time.Time
}

func newRateLimiter(burst int, refill time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if refill <= 0 {
		refill = time.Second
	}

	rl := &rateLimiter{
		burst:  float64(burst),
		level:  float64(burst),
		perSec: float64(burst) / refill.Seconds(),
		now:    time.Now,
	}
	rl.last = rl.now()
	return rl
}

// allow spends one token, reporting false when the bucket is empty.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.last).Seconds(); elapsed > 0 {
		rl.level = math.Min(rl.burst, rl.level+elapsed*rl.perSec)
	}
	rl.last = now

	if rl.level < 1 {
		return false
	}
	rl.level--
	return true
}
