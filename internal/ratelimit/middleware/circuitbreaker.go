package middleware

import (
	"sync"
	"time"
)

// breaker guards the shared bucket store. After threshold consecutive errors
// it opens and checks are served by the in-process fallback. While open the
// primary is retried by at most one request per cooldown; a successful trial
// closes the breaker, a failed one restarts the cooldown.
type breaker struct {
	mu            sync.Mutex
	threshold     int
	cooldown      time.Duration
	failures      int
	openedAt      time.Time
	trialInFlight bool
	now           func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.openedAt.IsZero()
}

// allowPrimary reports whether this request should consult the primary
// limiter. When open, only the first request after the cooldown does.
func (b *breaker) allowPrimary() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openedAt.IsZero() {
		return true
	}
	if b.trialInFlight || b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}
	b.trialInFlight = true
	return true
}

// failure records a primary error and reports whether it opened the breaker.
func (b *breaker) failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
	if !b.openedAt.IsZero() {
		b.openedAt = b.now()
		return false
	}
	b.failures++
	if b.failures < b.threshold {
		return false
	}
	b.openedAt = b.now()
	return true
}

// success records a primary success and reports whether it closed the breaker.
func (b *breaker) success() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasOpen := !b.openedAt.IsZero()
	b.failures = 0
	b.openedAt = time.Time{}
	b.trialInFlight = false
	return wasOpen
}
