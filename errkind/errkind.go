// Package errkind implements the error taxonomy from the fault-tolerance
// substrate: a closed set of error kinds that the retry wrapper and circuit
// breaker classify on, built on github.com/juju/errors so Cause() still
// recovers the wrapped error and annotations compose across layers.
package errkind

import (
	"context"
	"fmt"

	"github.com/juju/errors"
)

// Kind is a design-level error classification, not a Go type hierarchy.
type Kind int

const (
	// InputValidation: bad data, never retried, may be dropped on error.
	InputValidation Kind = iota
	// TransientIO: retried with backoff.
	TransientIO
	// BackpressureTimeout: retried with backoff, on the same schedule as
	// TransientIO; no longer delay is applied for this kind.
	BackpressureTimeout
	// PermanentRemote: surfaced immediately, not retried.
	PermanentRemote
	// Programmer: surfaced immediately, opens the circuit breaker.
	Programmer
	// Cancelled: not retried, propagated as-is.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InputValidation:
		return "input_validation"
	case TransientIO:
		return "transient_io"
	case BackpressureTimeout:
		return "backpressure_timeout"
	case PermanentRemote:
		return "permanent_remote"
	case Programmer:
		return "programmer"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// kindError carries a Kind alongside a juju/errors annotated cause.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string { return e.cause.Error() }

func (e *kindError) Unwrap() error { return e.cause }

// New creates an error of the given kind with the supplied message.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, cause: errors.New(msg)}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap annotates err with msg and tags it with kind. The original err
// remains reachable through errors.Cause and errors.As.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: errors.Annotate(err, msg)}
}

// Classify returns the Kind attached to err by New/Wrap, or falls back to
// Classify's default heuristic (context cancellation -> Cancelled, anything
// else -> TransientIO) for errors that never passed through this package.
// Components that need a reliable classification should always construct
// their errors with New/Wrap rather than relying on the fallback.
func Classify(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return TransientIO
}

// ErrCancelled is returned by suspension points observing a cancelled
// execution context; wrap context.Canceled/DeadlineExceeded with it via
// errors.Is checks upstream rather than string matching.
var ErrCancelled = errors.New("flowmesh: cancelled")

// Cause unwraps to the original error, skipping the Kind annotation layer.
func Cause(err error) error {
	return errors.Cause(err)
}
