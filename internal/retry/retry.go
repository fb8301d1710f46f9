// Package retry runs a fallible operation with exponential backoff, stopping
// immediately on non-retryable failures and aggregating per-attempt errors
// once the retry budget is spent.
package retry

import (
	"context"
	"time"

	"github.com/lingopool/lingopool/internal/translation"
)

const DefaultBaseDelay = 100 * time.Millisecond

type Config struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// BaseDelay seeds the backoff: the k-th retry waits BaseDelay * 2^(k-1).
	// Zero takes DefaultBaseDelay.
	BaseDelay time.Duration
}

// Do runs op up to cfg.MaxRetries+1 times. Non-retryable errors are returned
// unchanged on first occurrence; retryable ones accumulate, and if the budget
// runs out the full ordered history comes back in a MaxRetriesError. A ctx
// cancellation during backoff abandons the remaining attempts.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T

	base := cfg.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var history []error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := base << (attempt - 2)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !translation.Retryable(err) {
			return zero, err
		}
		history = append(history, err)
	}

	return zero, &translation.MaxRetriesError{Attempts: attempts, Errs: history}
}
