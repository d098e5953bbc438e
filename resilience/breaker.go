package resilience

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/flowmesh/flowmesh/errkind"
)

// BreakerState is a circuit breaker's current mode (spec §4.7).
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerPolicy configures a CircuitBreaker, matching the teacher's
// CircuitBreakerConfig field-for-field.
type CircuitBreakerPolicy struct {
	FailureThreshold int
	SuccessThreshold int
	OpenDuration     time.Duration
	HalfOpenMaxCalls int
}

// ErrCircuitOpen is returned by Allow when the breaker is fast-failing.
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

// CircuitBreaker is a single node's breaker state machine, driven by an
// injected clock.Clock so tests can advance time deterministically (the
// same pattern juju-juju's workers use instead of sleeping in tests).
// Its state is held in plain fields with no locking, so a CircuitBreaker is
// not safe for concurrent use.
type CircuitBreaker struct {
	policy CircuitBreakerPolicy
	clk    clock.Clock

	state         BreakerState
	failures      int
	successes     int
	halfOpenCalls int
	openedAt      time.Time
}

// NewCircuitBreaker creates a breaker in the Closed state.
func NewCircuitBreaker(policy CircuitBreakerPolicy, clk clock.Clock) *CircuitBreaker {
	if clk == nil {
		clk = clock.WallClock
	}
	return &CircuitBreaker{policy: policy, clk: clk, state: BreakerClosed}
}

// State returns the breaker's current mode.
func (cb *CircuitBreaker) State() BreakerState { return cb.state }

// Allow reports whether a call may proceed, transitioning Open to HalfOpen
// once OpenDuration has elapsed, and returns ErrCircuitOpen when the call
// must be fast-failed instead.
func (cb *CircuitBreaker) Allow() error {
	switch cb.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if cb.clk.Now().Sub(cb.openedAt) > cb.policy.OpenDuration {
			cb.state = BreakerHalfOpen
			cb.halfOpenCalls = 0
			cb.halfOpenCalls++
			return nil
		}
		return ErrCircuitOpen
	case BreakerHalfOpen:
		if cb.halfOpenCalls >= cb.policy.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.halfOpenCalls++
		return nil
	default:
		return nil
	}
}

// RecordResult updates breaker state after a call that Allow permitted.
func (cb *CircuitBreaker) RecordResult(err error) {
	if err != nil {
		cb.failures++
		cb.successes = 0
		if cb.state == BreakerHalfOpen || cb.failures >= cb.policy.FailureThreshold || errkind.Classify(err) == errkind.Programmer {
			cb.state = BreakerOpen
			cb.openedAt = cb.clk.Now()
		}
		return
	}

	cb.successes++
	cb.failures = 0
	if cb.state == BreakerHalfOpen && cb.successes >= cb.policy.SuccessThreshold {
		cb.state = BreakerClosed
	}
}
