package connectors

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Rate is a sustained request rate with a burst allowance.
type Rate struct {
	PerSecond float64
	Burst     int
}

// DefaultRate keeps well below the public datasets-server limits.
var DefaultRate = Rate{PerSecond: 2, Burst: 4}

// DefaultBackoff applies after a 429 that carries no Retry-After.
const DefaultBackoff = 30 * time.Second

// Throttle paces calls to one remote API. On top of the token bucket it
// holds every caller back while a server-requested pause is in effect.
type Throttle struct {
	bucket *rate.Limiter
	// pausedUntil is a UnixNano deadline, zero when not paused.
	pausedUntil atomic.Int64
}

// NewThrottle falls back to DefaultRate for a non-positive rate.
func NewThrottle(r Rate) *Throttle {
	if r.PerSecond <= 0 {
		r = DefaultRate
	}
	return &Throttle{bucket: rate.NewLimiter(rate.Limit(r.PerSecond), max(r.Burst, 1))}
}

// Wait blocks until the pause is over and a token is free.
func (t *Throttle) Wait(ctx context.Context) error {
	if d := t.remaining(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.bucket.Wait(ctx)
}

// Pause stops calls for d, or DefaultBackoff when d is not positive. A
// shorter pause never cuts a longer one short.
func (t *Throttle) Pause(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}
	until := time.Now().Add(d).UnixNano()
	for {
		cur := t.pausedUntil.Load()
		if cur >= until || t.pausedUntil.CompareAndSwap(cur, until) {
			return
		}
	}
}

// Allow takes a token without blocking.
func (t *Throttle) Allow() bool {
	return t.remaining() <= 0 && t.bucket.Allow()
}

func (t *Throttle) remaining() time.Duration {
	return time.Until(time.Unix(0, t.pausedUntil.Load()))
}
