// Package ratelimit spaces out calls to an external API across all workers.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between requests and a shared pause
// window set from server retry-after hints. One Throttle is shared by every
// worker talking to the same service.
type Throttle struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
	now         func() time.Time
}

// NewThrottle creates a Throttle. minInterval <= 0 disables spacing.
func NewThrottle(minInterval time.Duration) *Throttle {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Throttle{
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// NewThrottlePerSecond creates a Throttle allowing rps requests per second.
func NewThrottlePerSecond(rps int) *Throttle {
	if rps <= 0 {
		return NewThrottle(0)
	}
	return NewThrottle(time.Second / time.Duration(rps))
}

// Wait blocks until the pause window has passed and the limiter admits the
// call, or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		remaining := t.pausedUntil.Sub(t.now())
		t.mu.Unlock()
		if remaining <= 0 {
			break
		}
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return t.limiter.Wait(ctx)
}

// PauseFor holds every caller for d from now. A shorter pause never cuts an
// existing longer one.
func (t *Throttle) PauseFor(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	until := t.now().Add(d)
	if until.After(t.pausedUntil) {
		t.pausedUntil = until
	}
}

// PausedUntil returns the end of the current pause window, zero if none.
func (t *Throttle) PausedUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pausedUntil.Before(t.now()) {
		return time.Time{}
	}
	return t.pausedUntil
}
