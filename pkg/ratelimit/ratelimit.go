package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces operations at least one interval apart, adding optional jitter.
// Callers that report completion with Done also get a full interval of quiet
// after each operation ends. It is safe for concurrent use by multiple
// goroutines; all callers share one pace.
type Limiter struct {
	limiter  *rate.Limiter
	jitter   float64 // 0.0 to 1.0
	interval time.Duration

	mu        sync.Mutex
	quietTill time.Time
}

// NewLimiter creates a limiter that allows one operation per interval. The first
// operation passes immediately. Jitter must be between 0.0 and 1.0 and adds up to
// jitter*interval of extra delay per wait. If interval is <= 0, the limiter does not block.
func NewLimiter(interval time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	if interval <= 0 {
		return &Limiter{jitter: jitter}
	}

	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		jitter:   jitter,
		interval: interval,
	}
}

// PerSecond creates a limiter from a requests-per-second figure.
func PerSecond(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return NewLimiter(0, jitter)
	}
	return NewLimiter(time.Duration(float64(time.Second)/rps), jitter)
}

// Interval returns the minimum spacing between operations.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until it is time to perform the next operation, or until the
// context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	delay := time.Until(l.quietTill)
	l.mu.Unlock()

	if l.jitter > 0 {
		delay += time.Duration(float64(l.interval) * l.jitter * rand.Float64())
	}
	if delay <= 0 {
		return nil
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done marks the end of an operation. The next Wait returns no earlier than one
// interval from now.
func (l *Limiter) Done() {
	if l == nil || l.limiter == nil {
		return
	}
	until := time.Now().Add(l.interval)

	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.quietTill) {
		l.quietTill = until
	}
}
