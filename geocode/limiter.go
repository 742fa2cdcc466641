package geocode

import (
	"context"
	"sync"
	"time"
)

// Limiter spaces calls to an external service at least interval apart.
// One Limiter is shared by every caller hitting the same service; the
// pacing is politeness toward the service, not a correctness lock.
//
// The clock is injectable so tests can verify spacing without sleeping.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepFor,
	}
}

// Wait blocks until the next call is allowed, or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := l.now()
	next := l.last.Add(l.interval)
	if !next.After(now) {
		l.last = now
		l.mu.Unlock()
		return nil
	}
	// Reserve the slot before sleeping so concurrent callers queue up
	// instead of all waking at the same instant.
	l.last = next
	l.mu.Unlock()

	return l.sleep(ctx, next.Sub(now))
}

func sleepFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
