package resilience

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/flowmesh/flowmesh/errkind"
)

func defaultRetryable(err error) bool {
	switch errkind.Classify(err) {
	case errkind.InputValidation, errkind.Programmer, errkind.Cancelled, errkind.PermanentRemote:
		return false
	default:
		return true
	}
}

// Run executes attempt under policy, retrying with the configured backoff
// and (if breaker is non-nil) gating each attempt through the circuit
// breaker. It returns the final error: ErrCircuitOpen if the breaker
// fast-failed, or the last attempt's error annotated once retries are
// exhausted.
func Run(ctx context.Context, policy Policy, breaker *CircuitBreaker, clk clock.Clock, attempt func(ctx context.Context) error) error {
	if clk == nil {
		clk = clock.WallClock
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	delay := policy.InitialBackoff

	for i := 1; i <= maxAttempts; i++ {
		if breaker != nil {
			if err := breaker.Allow(); err != nil {
				return err
			}
		}

		err := attempt(ctx)

		if breaker != nil {
			breaker.RecordResult(err)
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if !policy.retryable(err) {
			return err
		}
		if i == maxAttempts {
			break
		}

		select {
		case <-clk.After(delay):
			delay = policy.nextDelay(delay)
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		}
	}

	return errRetriesExhausted(maxAttempts, lastErr)
}
