package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how hard the gateway tries before giving up on an operation.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// AttemptTimeout bounds each attempt on its own. Zero means no per-attempt limit.
	AttemptTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		Multiplier:      2,
		AttemptTimeout:  10 * time.Second,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	// Attempts, not wall time, bound the loop.
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, fails permanently, or the attempts run out.
// notify, if set, is called before each wait with the failed attempt's number.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, notify func(attempt int, err error, wait time.Duration)) error {
	attempt := 0
	run := func() error {
		attempt++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		defer cancel()

		err := op(actx)
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) { notify(attempt, err, wait) }
	}
	return backoff.RetryNotify(run, p.newBackOff(ctx), onRetry)
}
