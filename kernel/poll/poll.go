// Package poll provides the fixed-interval schedule shared by the commit and HA
// sync loops.
package poll

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Schedule hands out waits at a fixed interval until its attempt budget is spent
// or its context is done.
type Schedule struct {
	ctx      context.Context
	policy   backoff.BackOff
	attempts int
}

// Fixed returns a schedule of maxAttempts waits of interval each. A maxAttempts
// of zero or less leaves the schedule bounded only by the context.
func Fixed(ctx context.Context, interval time.Duration, maxAttempts int) *Schedule {
	var policy backoff.BackOff = backoff.NewConstantBackOff(interval)
	if maxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(maxAttempts))
	}
	policy = backoff.WithContext(policy, ctx)
	policy.Reset()
	return &Schedule{ctx: ctx, policy: policy}
}

// Next blocks for one interval and reports whether the caller may make another
// attempt. It returns false without waiting once the budget is spent, and as soon
// as the context is done.
func (s *Schedule) Next() bool {
	wait := s.policy.NextBackOff()
	if wait == backoff.Stop {
		return false
	}
	if !Sleep(s.ctx, wait) {
		return false
	}
	s.attempts++
	return true
}

// Attempts is the number of waits handed out so far.
func (s *Schedule) Attempts() int {
	return s.attempts
}

// Sleep waits for d, returning false if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
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
