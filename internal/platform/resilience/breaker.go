package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/pkg/sentinel"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting the underlying operation. It wraps sentinel.ErrUnavailable so
// upper layers classify it as an availability fault, not a caller error.
var ErrCircuitOpen = fmt.Errorf("circuit open: %w", sentinel.ErrUnavailable)

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// CircuitBreaker trips after threshold consecutive failures and fails fast
// for openFor. After openFor elapses exactly one trial call is admitted
// (half-open); its outcome decides whether the circuit closes or re-opens.
// Safe for concurrent use; callers never take external locks.
type CircuitBreaker struct {
	mu sync.Mutex

	class     Class
	threshold int
	openFor   time.Duration

	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool

	onTransition func(Class, State)

	now func() time.Time // injectable clock for tests
}

// NewCircuitBreaker builds a breaker for a resource class.
func NewCircuitBreaker(class Class, threshold int, openFor time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &CircuitBreaker{
		class:     class,
		threshold: threshold,
		openFor:   openFor,
		state:     StateClosed,
		now:       time.Now,
	}
}

// OnTransition registers a hook invoked whenever the breaker settles into a
// new state. The hook runs under the breaker lock and must not call back into
// the breaker. Call before the breaker is shared.
func (b *CircuitBreaker) OnTransition(hook func(Class, State)) {
	b.onTransition = hook
}

func (b *CircuitBreaker) transitioned(state State) {
	if b.onTransition != nil {
		b.onTransition(b.class, state)
	}
}

// State returns the current breaker state, accounting for open-interval expiry.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.openFor {
		return StateHalfOpen
	}
	return b.state
}

// Allow reports whether a call may proceed. When the open interval has
// elapsed it admits a single trial call and moves to half-open; concurrent
// callers during the trial are still rejected.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		b.transitioned(StateHalfOpen)
		return true
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	}
	return false
}

// RecordSuccess records a successful call. A half-open trial success closes
// the circuit; in closed state it resets the consecutive-failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.trialInFlight = false
		b.transitioned(StateClosed)
	}
	b.failures = 0
}

// RecordFailure records a failed call. A half-open trial failure re-opens the
// circuit with a fresh open interval; in closed state threshold consecutive
// failures open it.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
		b.trialInFlight = false
		b.failures = b.threshold
		b.transitioned(StateOpen)
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.transitioned(StateOpen)
		}
	}
}

// Reset manually closes the circuit.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.transitioned(StateClosed)
	}
	b.state = StateClosed
	b.failures = 0
	b.trialInFlight = false
}
