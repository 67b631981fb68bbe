package resilience

import (
	"context"
	"time"
)

// Context bundles the per-class retry policies and circuit breakers for one
// process. It is constructed once at startup and injected into every caller,
// keeping shared breaker state explicit rather than ambient.
type Context struct {
	retries  map[Class]*RetryPolicy
	breakers map[Class]*CircuitBreaker
}

// Settings are the knobs shared by all resource classes of a process.
type Settings struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	BreakerThreshold int
	BreakerOpenFor   time.Duration
}

// NewContext builds a resilience context with one retry policy and one
// breaker per resource class. The notifier observes every scheduled retry.
func NewContext(s Settings, notifier Notifier) *Context {
	predicates := map[Class]func(error) bool{
		ClassDatabase: DatabaseRetryable,
		ClassHTTP:     HTTPRetryable,
		ClassRPC:      RPCRetryable,
	}
	c := &Context{
		retries:  make(map[Class]*RetryPolicy, len(predicates)),
		breakers: make(map[Class]*CircuitBreaker, len(predicates)),
	}
	transitions, _ := notifier.(BreakerObserver)
	for class, pred := range predicates {
		c.retries[class] = NewRetryPolicy(class, s.MaxAttempts, s.BaseDelay, pred, notifier)
		breaker := NewCircuitBreaker(class, s.BreakerThreshold, s.BreakerOpenFor)
		if transitions != nil {
			breaker.OnTransition(transitions.OnBreakerTransition)
		}
		c.breakers[class] = breaker
	}
	return c
}

// BreakerObserver is implemented by notifiers that also want breaker state
// transitions.
type BreakerObserver interface {
	OnBreakerTransition(class Class, state State)
}

// Retry returns the shared retry policy for a class.
func (c *Context) Retry(class Class) *RetryPolicy { return c.retries[class] }

// Breaker returns the shared circuit breaker for a class.
func (c *Context) Breaker(class Class) *CircuitBreaker { return c.breakers[class] }

// Execute runs op under the class breaker and retry policy. A rejected call
// returns ErrCircuitOpen without invoking op; every attempt's outcome feeds
// the breaker. Errors propagate with their original classification.
func (c *Context) Execute(ctx context.Context, class Class, op func(context.Context) error) error {
	breaker := c.breakers[class]
	return c.retries[class].Execute(ctx, func(ctx context.Context) error {
		if !breaker.Allow() {
			return ErrCircuitOpen
		}
		err := op(ctx)
		if err != nil {
			breaker.RecordFailure()
			return err
		}
		breaker.RecordSuccess()
		return nil
	})
}
