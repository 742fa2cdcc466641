package geocode

import (
	"context"
	"testing"
	"time"
)

// virtualClock drives a Limiter without real sleeps: sleeping just
// advances the clock and records the requested duration.
type virtualClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newVirtualLimiter(interval time.Duration) (*Limiter, *virtualClock) {
	clock := &virtualClock{now: time.Unix(1700000000, 0)}
	l := NewLimiter(interval)
	l.now = func() time.Time { return clock.now }
	l.sleep = func(ctx context.Context, d time.Duration) error {
		clock.sleeps = append(clock.sleeps, d)
		clock.now = clock.now.Add(d)
		return nil
	}
	return l, clock
}

func TestLimiter_SpacesCalls(t *testing.T) {
	l, clock := newVirtualLimiter(time.Second)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	// First call is immediate, each later call waits a full interval.
	if len(clock.sleeps) != 3 {
		t.Fatalf("got %d sleeps, want 3", len(clock.sleeps))
	}
	for i, d := range clock.sleeps {
		if d != time.Second {
			t.Errorf("sleep %d = %v, want 1s", i, d)
		}
	}
}

func TestLimiter_NoWaitAfterIdle(t *testing.T) {
	l, clock := newVirtualLimiter(time.Second)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(5 * time.Second)
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	if len(clock.sleeps) != 0 {
		t.Fatalf("idle limiter slept: %v", clock.sleeps)
	}
}

func TestLimiter_ZeroIntervalAndNil(t *testing.T) {
	ctx := context.Background()
	if err := NewLimiter(0).Wait(ctx); err != nil {
		t.Fatalf("zero interval: %v", err)
	}
	var l *Limiter
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
}

func TestLimiter_ContextCanceled(t *testing.T) {
	l := NewLimiter(time.Hour)
	ctx := context.Background()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Wait(canceled); err == nil {
		t.Fatal("expected context error from canceled wait")
	}
}
