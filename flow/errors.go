package flow

import (
	"fmt"
	"strings"
)

// BuildError collects every structural problem found while compiling a
// Graph (spec §3 Validation). Build() returns one BuildError aggregating
// all violations rather than stopping at the first, so a caller can fix an
// entire graph definition in one pass.
type BuildError struct {
	Violations []error
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("graph build failed with %d violation(s):\n  - %s", len(e.Violations), strings.Join(msgs, "\n  - "))
}

func (e *BuildError) Unwrap() []error { return e.Violations }

type violationf struct{ msg string }

func (v violationf) Error() string { return v.msg }

func newViolation(format string, args ...any) error {
	return violationf{msg: fmt.Sprintf(format, args...)}
}
