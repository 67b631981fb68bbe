package resilience

import (
	"context"
	"time"
)

// Notifier receives a notification for every retry the engine schedules.
// The production implementation records Prometheus counters; tests inject
// their own to observe attempts and delays.
type Notifier interface {
	OnRetry(class Class, attempt int, delay time.Duration)
}

// NopNotifier discards retry notifications.
type NopNotifier struct{}

func (NopNotifier) OnRetry(Class, int, time.Duration) {}

// RetryPolicy retries an operation with exponential backoff. It is immutable
// and safe for concurrent use; construct one per resource class at startup.
type RetryPolicy struct {
	class       Class
	maxAttempts int
	baseDelay   time.Duration
	retryable   func(error) bool
	notifier    Notifier
}

// NewRetryPolicy builds a policy for the given class. maxAttempts counts
// retries after the first call; zero disables retrying. retryable decides
// whether a failure is transient for this class.
func NewRetryPolicy(class Class, maxAttempts int, baseDelay time.Duration, retryable func(error) bool, notifier Notifier) *RetryPolicy {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RetryPolicy{
		class:       class,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		retryable:   retryable,
		notifier:    notifier,
	}
}

// Delay returns the backoff before the given retry attempt (1-based):
// base × 2^attempt. Monotonically non-decreasing in attempt.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.baseDelay * (1 << uint(attempt))
}

// MaxAttempts reports the configured retry budget.
func (p *RetryPolicy) MaxAttempts() int { return p.maxAttempts }

// WithMaxAttempts derives a policy with a different retry budget, keeping the
// class, backoff, predicate, and notifier. Callers that need a tighter or
// looser budget than the shared per-class policy use this instead of
// constructing a policy from scratch.
func (p *RetryPolicy) WithMaxAttempts(maxAttempts int) *RetryPolicy {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	if maxAttempts == p.maxAttempts {
		return p
	}
	derived := *p
	derived.maxAttempts = maxAttempts
	return &derived
}

// Execute runs op, retrying transient failures up to maxAttempts times.
// The last observed error is returned as-is after exhaustion so callers keep
// its original classification. Backoff waits respect ctx cancellation.
func (p *RetryPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		// Breaker rejections fail fast; retrying would defeat the point.
		if IsCircuitOpen(lastErr) {
			return lastErr
		}
		if attempt >= p.maxAttempts || p.retryable == nil || !p.retryable(lastErr) {
			return lastErr
		}

		delay := p.Delay(attempt + 1)
		p.notifier.OnRetry(p.class, attempt+1, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
