// Package backoff provides the pacing between requests and a generic
// retry wrapper with exponential growth, cap and jitter.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Delayer produces a respectful pause between consecutive requests:
// a fixed base plus random jitter in [0, Jitter).
type Delayer struct {
	Base   time.Duration
	Jitter time.Duration
}

// NewDelayer builds a Delayer with jitter proportional to the base.
func NewDelayer(base time.Duration) Delayer {
	return Delayer{Base: base, Jitter: base / 2}
}

// Delay sleeps for base + jitter, or returns early with the context error.
func (d Delayer) Delay(ctx context.Context) error {
	select {
	case <-time.After(d.next()):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d Delayer) next() time.Duration {
	wait := d.Base
	if d.Jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(d.Jitter)))
	}
	return wait
}

// maxBackoff caps the exponential growth inside Execute.
const maxBackoff = 30 * time.Second

// Execute runs op, retrying up to maxRetries times with exponentially
// growing, jittered sleeps between attempts. It returns the number of
// retries actually performed alongside the final error (nil on success).
func (d Delayer) Execute(ctx context.Context, op func() error, maxRetries int) (int, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := op(); err == nil {
			return attempt, nil
		} else {
			lastErr = err
		}
		if attempt >= maxRetries {
			return attempt, lastErr
		}

		sleep := d.Base << uint(attempt)
		if sleep > maxBackoff || sleep <= 0 {
			sleep = maxBackoff
		}
		if d.Jitter > 0 {
			sleep += time.Duration(rand.Int63n(int64(d.Jitter)))
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}
}
