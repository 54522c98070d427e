package fcm

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// RetryPolicy is the complete retry behavior of a send: attempt budget,
// backoff shape, and the retryable predicate. The zero value is not usable;
// start from DefaultRetryPolicy.
type RetryPolicy struct {
	// MaxAttempts includes the initial try.
	MaxAttempts int
	BaseDelay   time.Duration
	// Backoff returns the wait before the next attempt. Nil means the
	// default: immediate for an auth rejection, exponential for a rate
	// limit, linear otherwise.
	Backoff func(attempt int, err error) time.Duration
	// Retryable gates another attempt. Nil means the package default.
	Retryable func(err error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
	}
}

func (p RetryPolicy) backoff(attempt int, err error) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt, err)
	}
	var (
		ue *UnauthorizedError
		re *RateLimitError
	)
	switch {
	case errors.As(err, &ue):
		// The refresh itself is the remedy; resend immediately.
		return 0
	case errors.As(err, &re):
		return p.BaseDelay << attempt
	default:
		return time.Duration(attempt) * p.BaseDelay
	}
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return Retryable(err)
}

// Do runs op until it succeeds, fails permanently, or the attempt budget is
// spent. Backoff waits are timer-based and honor ctx so one token's delay
// never blocks another's progress.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx, attempt); err == nil {
			return nil
		}
		if !p.retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if delay := p.backoff(attempt, err); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		}
	}
	return &ExhaustedRetriesError{Attempts: attempts, Err: err}
}
