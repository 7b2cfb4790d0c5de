package relay

import (
	"testing"
	"time"
)

// fixedClock pins a limiter to a controllable time source.
func fixedClock(rl *rateLimiter, start time.Time) *time.Time {
	current := start
	rl.now = func() time.Time { return current }
	rl.last = start
	return &current
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := newRateLimiter(3, time.Second)
	fixedClock(rl, time.Now())

	for i := 0; i < 3; i++ {
		if !rl.allow() {
			t.Fatalf("Expected frame %d within burst to be allowed", i+1)
		}
	}
	if rl.allow() {
		t.Error("Expected frame beyond burst to be rejected")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(2, 20*time.Millisecond)
	clock := fixedClock(rl, time.Now())

	rl.allow()
	rl.allow()
	if rl.allow() {
		t.Fatal("Bucket should be empty")
	}

	*clock = clock.Add(15 * time.Millisecond)
	if !rl.allow() {
		t.Error("Expected a token back after a partial refill interval")
	}
}

func TestRateLimiterRefillCapsAtBurst(t *testing.T) {
	rl := newRateLimiter(2, 20*time.Millisecond)
	clock := fixedClock(rl, time.Now())

	// A long idle period must not bank more than one burst.
	*clock = clock.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if !rl.allow() {
			t.Fatalf("Expected frame %d within burst to be allowed", i+1)
		}
	}
	if rl.allow() {
		t.Error("Expected frame beyond burst to be rejected after idle refill")
	}
}

func TestRateLimiterInvalidParametersDefaulted(t *testing.T) {
	rl := newRateLimiter(0, 0)

	if !rl.allow() {
		t.Error("Limiter with defaulted capacity should allow one frame")
	}
}
