// Package retry polls an operation with capped exponential backoff.
//
// ytinsight uses it only to wait for the store file lock. Upstream API
// failures are surfaced to the caller and never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes how often and how long Do waits between attempts.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below 1 mean a single call.
	Attempts int
	// Base is the wait after the first failure.
	Base time.Duration
	// Cap bounds every wait. Zero means no bound.
	Cap time.Duration
	// Factor multiplies the wait after each failure. Values below 1 keep it
	// constant.
	Factor float64
	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64
}

// LockPolling is the policy for waiting on another process's store lock:
// about five seconds in total.
func LockPolling() Policy {
	return Policy{
		Attempts: 21,
		Base:     10 * time.Millisecond,
		Cap:      500 * time.Millisecond,
		Factor:   2,
		Jitter:   0.2,
	}
}

// Delay is the wait after failed attempt n, counting from 0, before jitter.
func (p Policy) Delay(n int) time.Duration {
	factor := math.Max(p.Factor, 1)
	d := float64(p.Base) * math.Pow(factor, float64(n))
	if p.Cap > 0 && d > float64(p.Cap) {
		return p.Cap
	}
	return time.Duration(d)
}

func (p Policy) wait(n int) time.Duration {
	d := p.Delay(n)
	if p.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * p.Jitter * float64(d))
	}
	return max(d, 0)
}

// Retryable reports whether a failed attempt should be tried again.
type Retryable func(error) bool

// Transient treats every error as retryable except context cancellation and
// deadlines.
func Transient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do calls fn until it succeeds, fails with an error retryable rejects, or the
// attempts run out. In the last case the final error is returned inside an
// *ExhaustedError. A nil retryable means Transient.
func Do(ctx context.Context, p Policy, retryable Retryable, fn func(context.Context) error) error {
	if retryable == nil {
		retryable = Transient
	}
	attempts := max(p.Attempts, 1)

	var last error
	for n := 0; n < attempts; n++ {
		if last = fn(ctx); last == nil {
			return nil
		}
		if !retryable(last) {
			return last
		}
		if n == attempts-1 {
			break
		}

		timer := time.NewTimer(p.wait(n))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: last}
}

// ExhaustedError reports an operation that was still failing when the
// attempts ran out.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
