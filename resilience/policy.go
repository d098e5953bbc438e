// Package resilience implements the fault-tolerance substrate from spec
// §4.7: per-node retry policies with configurable backoff, a circuit
// breaker state machine, and the continue-on-error/drop semantics that let
// a node survive a permanently failing item instead of failing outright.
// It is grounded on the teacher's graph/retry.go (RetryConfig/RetryNode,
// CircuitBreaker/CircuitBreakerConfig/CircuitBreakerState, Exponential
// BackoffRetry), generalized from an any-state node wrapper to a plain
// attempt-function wrapper usable by any node kind.
package resilience

import (
	"math/rand"
	"time"

	"github.com/juju/errors"
)

// BackoffStrategy selects how the delay between retry attempts grows.
type BackoffStrategy int

const (
	BackoffFixed BackoffStrategy = iota
	BackoffExponential
	BackoffExponentialJitter
)

// Policy configures retry behavior for one node (spec §4.7).
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Backoff        BackoffStrategy

	// RetryIf decides whether err should trigger another attempt. Leave nil
	// to use the default, which retries everything except the permanent
	// error kinds from package errkind (InputValidation, Programmer,
	// Cancelled, PermanentRemote).
	RetryIf func(error) bool

	// Breaker configures a circuit breaker guarding this node. Leave nil to
	// run without one.
	Breaker *CircuitBreakerPolicy

	// ContinueOnError, when true, makes the owning node drop an item that
	// exhausts retries instead of failing the whole node (spec §4.7).
	ContinueOnError bool
}

// DefaultPolicy mirrors the teacher's DefaultRetryConfig: three attempts,
// exponential backoff from 100ms capped at 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Backoff:        BackoffExponential,
	}
}

func (p Policy) retryable(err error) bool {
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return defaultRetryable(err)
}

func (p Policy) nextDelay(cur time.Duration) time.Duration {
	var d time.Duration
	switch p.Backoff {
	case BackoffFixed:
		d = p.InitialBackoff
	case BackoffExponentialJitter:
		base := cur * 2
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1))
		d = base + jitter
	default: // BackoffExponential
		d = cur * 2
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if d < 0 {
		d = 0
	}
	return d
}

// errRetriesExhausted annotates the last attempt's error with the attempt
// count once MaxAttempts has been used up without success.
func errRetriesExhausted(attempts int, cause error) error {
	return errors.Annotatef(cause, "exhausted %d attempt(s)", attempts)
}
