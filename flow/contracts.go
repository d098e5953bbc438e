// Package flow defines the Source, Transform, Tap and Sink node-kind
// contracts from spec §4 (the Join and Aggregator configurations are
// operator.JoinSpec and operator.AggregateSpec) and the Graph builder that wires them into a plan.Plan (spec §3/§9: "keep the
// builder generic/parameterized so edge-type compatibility is a
// compile-time check where the host language permits" — flow leans on Go's
// type parameters for exactly that, rather than reflection).
package flow

import (
	"context"

	"github.com/flowmesh/flowmesh/stream"
)

// Source produces a stream with no upstream input. Run spawns whatever
// internal production it needs and returns immediately with the stream
// handle; the returned stream closes (with an error, or cleanly) once
// production ends.
type Source[T any] interface {
	Run(ctx context.Context) (*stream.Stream[T], error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc[T any] func(ctx context.Context) (*stream.Stream[T], error)

func (f SourceFunc[T]) Run(ctx context.Context) (*stream.Stream[T], error) { return f(ctx) }

// Transform maps one input item to one output item. The engine drives the
// consume/produce loop and wraps each OnItem call in the node's configured
// retry/circuit-breaker policy (spec §4.3, §4.7).
type Transform[In, Out any] interface {
	OnItem(ctx context.Context, in In) (Out, error)
}

// TransformFunc adapts a plain function to Transform.
type TransformFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

func (f TransformFunc[In, Out]) OnItem(ctx context.Context, in In) (Out, error) { return f(ctx, in) }

// Tap forwards every input item unchanged to the main output while also
// delivering a copy to a side sink, for observation without altering the
// primary dataflow (spec §4, "Tap").
type Tap[T any] struct {
	SideSink func(ctx context.Context, v T) error
}

// Sink consumes a stream to completion and is the terminal node of a
// dataflow branch.
type Sink[T any] interface {
	Run(ctx context.Context, in *stream.Stream[T]) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc[T any] func(ctx context.Context, in *stream.Stream[T]) error

func (f SinkFunc[T]) Run(ctx context.Context, in *stream.Stream[T]) error { return f(ctx, in) }
