// Package ratelimit paces outbound provider calls and retries transient
// failures with exponential backoff.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// Limiter shares one token bucket across every provider call in the process,
// so worker concurrency cannot multiply the effective request rate.
type Limiter struct {
	bucket     *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// New builds a limiter allowing rps requests per second with the given burst.
// maxRetries bounds re-attempts after the first call.
func New(rps float64, burst, maxRetries int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Limiter{
		bucket:     rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries: maxRetries,
		backoff:    initialBackoff,
	}
}

// Do waits for a token, runs fn, and retries transient failures with
// exponential backoff. It returns immediately on success, on context
// cancellation, or when the error wraps domain.ErrUnavailable, which marks
// failures that retrying cannot fix within this run.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	backoff := l.backoff
	var lastErr error

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if err := l.bucket.Wait(ctx); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrUnavailable) {
			return lastErr
		}

		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", l.maxRetries+1, lastErr)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
