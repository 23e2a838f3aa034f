package supplier

import (
	"context"
	"math"
	"time"
)

// Policy controls how rate-limited calls are retried. Attempt n (0-based)
// that comes back rate limited waits Delay(n) before attempt n+1.
type Policy struct {
	Base        time.Duration
	Multiplier  float64
	Cap         time.Duration
	MaxAttempts int
	RetryAfter  time.Duration // hint returned once attempts are exhausted
}

func DefaultPolicy() Policy {
	return Policy{
		Base:        60 * time.Second,
		Multiplier:  2,
		Cap:         5 * time.Minute,
		MaxAttempts: 3,
		RetryAfter:  300 * time.Second,
	}
}

// Delay is min(Base * Multiplier^n, Cap).
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	m := p.Multiplier
	if m < 1 {
		m = 1
	}
	d := float64(p.Base) * math.Pow(m, float64(n))
	if p.Cap > 0 && d > float64(p.Cap) {
		return p.Cap
	}
	return time.Duration(d)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
