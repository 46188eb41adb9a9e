// Package retry runs provider calls with capped exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/neooriginal/FSCS/internal/apperr"
)

type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy allows three attempts starting at one second.
var DefaultPolicy = Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}

// Delay returns the backoff before retry number attempt (zero based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		return p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns a non-transient error, or the
// attempt ceiling is reached. Sleeping honours ctx.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		result T
		err    error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || !apperr.IsTransient(err) || attempt == attempts-1 {
			return result, err
		}

		delay := p.Delay(attempt)
		if logger != nil {
			logger.Warn("transient provider error, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}
	return result, err
}
