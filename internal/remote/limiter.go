package remote

import (
	"context"
	"sync"
	"time"
)

// Limiter is a blocking leaky-bucket gate honoring the remote service's call
// budget (e.g. 4 calls per second). Wait never drops a call, it sleeps until
// a slot is free. The gate is process-local; concurrent processes against the
// same account need an external shared limiter.
type Limiter struct {
	mu     sync.Mutex
	calls  int
	period time.Duration
	stamps []time.Time
}

func NewLimiter(calls int, period time.Duration) *Limiter {
	if calls <= 0 {
		calls = 1
	}
	return &Limiter{calls: calls, period: period}
}

// Wait blocks until a call may be issued within the budget, or until ctx is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()

		// Drop stamps that have leaked out of the window.
		cutoff := now.Add(-l.period)
		i := 0
		for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
			i++
		}
		l.stamps = l.stamps[i:]

		if len(l.stamps) < l.calls {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Add(l.period).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
