// Package ratelimit paces and retries calls to external services.
//
// Free API tiers meter by request starts, so the limiter spaces the
// starts of successive calls of the same kind rather than inserting a
// pause after each response. The retry policy layers a bounded retry
// with a cooldown for throttled calls on top.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Class sorts a call failure into how the policy should react
type Class int

const (
	// ClassTerminal failures are returned immediately
	ClassTerminal Class = iota
	// ClassTransient failures are retried without extra cooldown
	ClassTransient
	// ClassThrottled failures trigger a cooldown before the next attempt
	ClassThrottled
)

// ClassifyFunc maps an error from a call to its retry class
type ClassifyFunc func(error) Class

// RateLimitExceededError reports a call that stayed throttled through
// every allowed attempt
type RateLimitExceededError struct {
	Kind     string
	Attempts int
	Err      error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("%s call still rate limited after %d attempts: %v", e.Kind, e.Attempts, e.Err)
}

func (e *RateLimitExceededError) Unwrap() error {
	return e.Err
}

// Limiter enforces a minimum spacing between call starts per kind
type Limiter struct {
	delay time.Duration

	mu   sync.Mutex
	last map[string]time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewLimiter creates a limiter with the given minimum spacing
func NewLimiter(delay time.Duration) *Limiter {
	return &Limiter{
		delay: delay,
		last:  make(map[string]time.Time),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Wait blocks until at least the configured delay has passed since the
// previous call of the same kind was started, then marks the start of
// the next call. The first call of each kind never waits.
func (l *Limiter) Wait(ctx context.Context, kind string) error {
	l.mu.Lock()
	var wait time.Duration
	if last, ok := l.last[kind]; ok {
		if elapsed := l.now().Sub(last); elapsed < l.delay {
			wait = l.delay - elapsed
		}
	}
	l.mu.Unlock()

	if wait > 0 {
		zap.S().Debugf("Pacing %s call, waiting %v", kind, wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last[kind] = l.now()
	l.mu.Unlock()
	return nil
}

// Policy retries classified failures within a fixed attempt budget
type Policy struct {
	limiter     *Limiter
	maxAttempts int
	cooldown    time.Duration
	classify    ClassifyFunc

	sleep func(context.Context, time.Duration) error
}

// NewPolicy builds a retry policy on top of a limiter. classify decides
// how each failure is handled, see Class.
func NewPolicy(limiter *Limiter, maxAttempts int, cooldown time.Duration, classify ClassifyFunc) *Policy {
	return &Policy{
		limiter:     limiter,
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		classify:    classify,
		sleep:       sleepContext,
	}
}

// Do runs call under the pacing and retry rules for kind. Terminal
// failures propagate unchanged, transient and throttled failures are
// retried up to the attempt budget. A call that is still throttled on
// its last attempt comes back as a *RateLimitExceededError.
func (p *Policy) Do(ctx context.Context, kind string, call func(context.Context) error) error {
	var lastErr error
	var lastClass Class

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := p.limiter.Wait(ctx, kind); err != nil {
			return err
		}

		err := call(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		lastClass = p.classify(err)

		switch lastClass {
		case ClassTerminal:
			return err
		case ClassThrottled:
			zap.S().Warnf("%s call hit the rate limit on attempt %d/%d", kind, attempt, p.maxAttempts)
			if attempt < p.maxAttempts {
				if err := p.sleep(ctx, p.cooldown); err != nil {
					return err
				}
			}
		case ClassTransient:
			zap.S().Warnf("%s call failed on attempt %d/%d: %v", kind, attempt, p.maxAttempts, err)
		}
	}

	if lastClass == ClassThrottled {
		return &RateLimitExceededError{Kind: kind, Attempts: p.maxAttempts, Err: lastErr}
	}
	return fmt.Errorf("%s call failed after %d attempts: %w", kind, p.maxAttempts, lastErr)
}

// sleepContext sleeps for d unless the context ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
