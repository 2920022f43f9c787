package resilience

import (
	"context"
	"sync"
	"time"
)

// State is the externally observed breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	DefaultFailMax      = 5
	DefaultResetTimeout = 60 * time.Second
)

// Breaker guards one named dependency. It holds no timer: the OPEN to
// HALF_OPEN transition is recomputed lazily whenever the state is read.
type Breaker struct {
	name         string
	failMax      int
	resetTimeout time.Duration

	now          func() time.Time
	onTransition func(name string, from, to State)

	mu          sync.Mutex
	open        bool
	probing     bool
	failures    int
	lastFailure time.Time
}

type BreakerOption func(*Breaker)

func WithFailMax(n int) BreakerOption {
	return func(b *Breaker) { b.failMax = n }
}

func WithResetTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.resetTimeout = d }
}

func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

func withTransitionHook(fn func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) { b.onTransition = fn }
}

func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:         name,
		failMax:      DefaultFailMax,
		resetTimeout: DefaultResetTimeout,
		now:          time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// State reports the current state, computing OPEN to HALF_OPEN lazily.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if !b.open {
		return StateClosed
	}
	if b.now().Sub(b.lastFailure) >= b.resetTimeout {
		return StateHalfOpen
	}
	return StateOpen
}

// Failures reports the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Do runs fn under the breaker. While OPEN it rejects immediately with a
// CircuitOpen error and never invokes fn. In HALF_OPEN exactly one probe
// is allowed through; a probe failure re-opens the breaker regardless of
// the failure count.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.stateLocked()
	switch state {
	case StateOpen:
		b.mu.Unlock()
		return &Error{Kind: CircuitOpen, Dependency: b.name}
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return &Error{Kind: CircuitOpen, Dependency: b.name}
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err == nil {
		b.recordSuccessLocked(state)
		return nil
	}
	b.recordFailureLocked(state)
	return err
}

func (b *Breaker) recordSuccessLocked(before State) {
	wasOpen := b.open
	b.failures = 0
	b.open = false
	if wasOpen {
		b.transition(before, StateClosed)
	}
}

func (b *Breaker) recordFailureLocked(before State) {
	b.failures++
	b.lastFailure = b.now()
	switch {
	case before == StateHalfOpen:
		// One failed probe disqualifies immediately, independent of the
		// failure counter.
		b.open = true
		b.transition(StateHalfOpen, StateOpen)
	case !b.open && b.failures >= b.failMax:
		b.open = true
		b.transition(StateClosed, StateOpen)
	}
}

func (b *Breaker) transition(from, to State) {
	if b.onTransition != nil && from != to {
		b.onTransition(b.name, from, to)
	}
}
