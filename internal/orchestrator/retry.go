package orchestrator

import (
	"context"
	"errors"
	"time"

	"gopkg.in/retry.v1"
)

// Default retry policy values.
const (
	DefaultRetryAttempts = 5
	DefaultRetryStep     = 2 * time.Second
)

// RetryPolicy bounds a retried operation: at most Attempts calls, waiting
// Step before the second call, 2*Step before the third and so on.
type RetryPolicy struct {
	Attempts int
	Step     time.Duration

	// Retryable decides whether a failure is worth another attempt.
	// Defaults to IsTransient.
	Retryable func(error) bool

	// Clock drives the waits. Nil means the wall clock.
	Clock retry.Clock
}

// IsTransient reports whether err is an eventual-consistency failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// linearStrategy sleeps n*step before the (n+1)th attempt.
type linearStrategy struct {
	step time.Duration
}

func (s linearStrategy) NewTimer(time.Time) retry.Timer {
	return &linearTimer{step: s.step}
}

type linearTimer struct {
	step time.Duration
	n    int
}

func (t *linearTimer) NextSleep(time.Time) (time.Duration, bool) {
	t.n++
	return time.Duration(t.n) * t.step, true
}

// Retry calls op until it succeeds, fails with a non-retryable error, the
// attempts run out or ctx is done. The last error is returned.
//
// Parameters:
//   - ctx: Cancels waiting between attempts
//   - policy: Attempt count, delay step and retry predicate
//   - op: The operation; receives ctx
//
// Returns:
//   - error: nil on success, otherwise the last failure or ctx.Err()
func Retry(ctx context.Context, policy RetryPolicy, op func(context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	strategy := retry.LimitCount(attempts, linearStrategy{step: policy.Step})

	var err error
	for a := retry.Start(strategy, contextClock{ctx: ctx, clock: policy.Clock}); a.Next(); {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				return ctxErr
			}
			return errors.Join(err, ctxErr)
		}
		if err = op(ctx); err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

// contextClock ends a wait early when ctx is done.
type contextClock struct {
	ctx   context.Context
	clock retry.Clock
}

func (c contextClock) Now() time.Time {
	if c.clock != nil {
		return c.clock.Now()
	}
	return time.Now()
}

func (c contextClock) After(d time.Duration) <-chan time.Time {
	var wait <-chan time.Time
	if c.clock != nil {
		wait = c.clock.After(d)
	} else {
		wait = time.After(d)
	}

	fired := make(chan time.Time, 1)
	go func() {
		select {
		case t := <-wait:
			fired <- t
		case <-c.ctx.Done():
			fired <- c.Now()
		}
	}()
	return fired
}
