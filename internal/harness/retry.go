package harness

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go-eval-harness/internal/model"
)

// retryPolicy bounds the attempts a worker makes for a single unit.
type retryPolicy struct {
	maxAttempts       int
	initialDelay      time.Duration
	maxDelay          time.Duration
	backoffMultiplier float64
	jitter            bool
}

func newRetryPolicy(maxAttempts int, initial, max time.Duration) retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return retryPolicy{
		maxAttempts:       maxAttempts,
		initialDelay:      initial,
		maxDelay:          max,
		backoffMultiplier: 2.0,
		jitter:            true,
	}
}

// retryable is implemented by errors that know whether another attempt can help.
type retryable interface {
	Retryable() bool
}

// isRetryableError treats cancellation as final, defers to the error itself when it
// can tell, and retries anything else.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// delay is the wait before attempt+1, after attempt failed attempts.
func (p retryPolicy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.initialDelay) * math.Pow(p.backoffMultiplier, float64(attempt-1)))
	if p.maxDelay > 0 && d > p.maxDelay {
		d = p.maxDelay
	}
	if p.jitter && d > 0 {
		d += time.Duration(float64(d) * 0.1 * (rand.Float64() - 0.5))
	}
	return d
}

// do runs fn until it succeeds, fails permanently, or attempts run out.
// It returns the verdict of the last attempt, the number of attempts made and the last error.
// A failed attempt's verdict may still carry the evaluatee output.
func (p retryPolicy) do(ctx context.Context, fn func(context.Context) (model.Verdict, error)) (model.Verdict, int, error) {
	var (
		last    model.Verdict
		lastErr error
	)
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		verdict, err := fn(ctx)
		if err == nil {
			return verdict, attempt, nil
		}
		last, lastErr = verdict, err
		if attempt == p.maxAttempts || ctx.Err() != nil || !isRetryableError(err) {
			return last, attempt, lastErr
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, attempt, lastErr
		case <-timer.C:
		}
	}
	return last, p.maxAttempts, lastErr
}
