package outreach

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between actions. It protects the
// outbound channel from bursty provider-side rate limiting; it is not a
// correctness mechanism.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewThrottle creates a throttle with the given minimum interval. A zero
// interval disables waiting.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Wait blocks until the interval since the previous action has elapsed or the
// context is cancelled
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval > 0 && !t.last.IsZero() {
		elapsed := time.Since(t.last)
		if elapsed < t.interval {
			select {
			case <-time.After(t.interval - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	t.last = time.Now()
	return nil
}
