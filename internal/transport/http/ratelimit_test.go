package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindows(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limiter := newRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	if !limiter.allow(1) || !limiter.allow(1) {
		t.Fatal("first two requests must pass")
	}
	if limiter.allow(1) {
		t.Fatal("third request in window must be rejected")
	}
	if !limiter.allow(2) {
		t.Fatal("limits are per user")
	}

	now = now.Add(time.Minute)
	if !limiter.allow(1) {
		t.Fatal("new window must reset the counter")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := newRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !limiter.allow(1) {
			t.Fatal("zero limit disables limiting")
		}
	}
}
