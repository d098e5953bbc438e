// Package operator implements the two stateful, keyed node kinds from spec
// §4.5 (join) and §4.6 (aggregate). Each runs as a single task with no
// locking: all mutable state (key buffers, accumulators, window trackers)
// is owned by one goroutine per operator instance, matching the engine's
// one-goroutine-per-node model (spec §5).
package operator

import (
	"time"

	"github.com/flowmesh/flowmesh/stream"
	"github.com/flowmesh/flowmesh/window"
)

// JoinType selects which unmatched-side behavior a Join applies at
// finalization (spec §4.5).
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
)

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "inner"
	case JoinLeftOuter:
		return "left_outer"
	case JoinRightOuter:
		return "right_outer"
	case JoinFullOuter:
		return "full_outer"
	default:
		return "unknown"
	}
}

func (t JoinType) emitsLeftOnly() bool  { return t == JoinLeftOuter || t == JoinFullOuter }
func (t JoinType) emitsRightOnly() bool { return t == JoinRightOuter || t == JoinFullOuter }

// JoinSpec configures a keyed join of two typed inputs sharing key K (spec
// §4.5). Leaving WindowAssigner nil selects the whole-stream variant, which
// buffers until both inputs reach end-of-stream; setting it selects the
// window-scoped variant, which finalizes each (key, window) once the
// merged watermark passes the window's end plus AllowedLateness.
//
// Self-join (both inputs from the same producing node) is not given any
// special tag-wrapping machinery here: this design requires an explicit
// broadcast transform upstream of a self-join, after which left and right
// are already structurally distinct stream instances, so the join operator
// never needs to disambiguate origin by value inspection.
type JoinSpec[K comparable, L, R, Out any] struct {
	KeyLeft  func(L) K
	KeyRight func(R) K
	Combine  func(L, R) Out

	// LeftOnly/RightOnly produce a fallback result for an item that never
	// matched, emitted at finalization. Required when JoinType admits that
	// side's outer case.
	LeftOnly  func(L) Out
	RightOnly func(R) Out

	JoinType JoinType

	WindowAssigner  window.Assigner
	EventTimeLeft   func(L) stream.Timestamp
	EventTimeRight  func(R) stream.Timestamp
	AllowedLateness time.Duration
}

// LatePolicy governs what an Aggregator does with an item that arrives
// after its window has already finalized (spec §4.4 "Late data").
type LatePolicy int

// RunAggregate handles LateDrop and LateSideOutput alike except for logging:
// LateSideOutput logs the late item at warn level, then drops it. There is no
// side-output stream.
const (
	LateDrop LatePolicy = iota
	LateSideOutput
)

// AggregateSpec configures a keyed, windowed fold (spec §4.6).
type AggregateSpec[In any, K comparable, Acc, Out any] struct {
	KeyOf             func(In) K
	EventTime         func(In) stream.Timestamp
	CreateAccumulator func() Acc
	Accumulate        func(Acc, In) Acc
	Result            func(Acc) Out

	WindowAssigner  window.Assigner
	AllowedLateness time.Duration
	LatePolicy      LatePolicy
}
