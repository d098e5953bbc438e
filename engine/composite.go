package engine

import (
	"context"

	"github.com/juju/errors"

	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
)

// InheritOptions selects which of a composite node's ambient bags are
// copied into its sub-plan's Context (spec §4.8). Cancellation, logger,
// tracer, error handler, lineage recorder and the resilience substrate are
// always inherited regardless of these flags.
type InheritOptions struct {
	Parameters bool
	Items      bool
	Properties bool
}

type compositeItemKey[In any] struct{}
type compositeResultKey[Out any] struct{}

// FeedSource returns the flow.Source a composite node's sub-plan uses as
// its single entry point: it reads the one item a CompositeTransform
// invocation stashed on the context and emits exactly that value, then
// closes.
func FeedSource[In any]() flow.Source[In] {
	return flow.SourceFunc[In](func(ctx context.Context) (*stream.Stream[In], error) {
		s := stream.New[In]("composite-feed", 1)
		v, ok := ctx.Value(compositeItemKey[In]{}).(In)
		go func() {
			if !ok {
				s.Close(errors.New("engine: composite sub-plan ran with no fed item in context"))
				return
			}
			if err := s.Produce(ctx, v); err != nil {
				s.Close(err)
				return
			}
			s.Close(nil)
		}()
		return s, nil
	})
}

// CollectSink returns the flow.Sink a composite node's sub-plan uses as its
// single exit point: it forwards every value it consumes to the result
// channel a CompositeTransform invocation is waiting on.
func CollectSink[Out any]() flow.Sink[Out] {
	return flow.SinkFunc[Out](func(ctx context.Context, in *stream.Stream[Out]) error {
		resultCh, _ := ctx.Value(compositeResultKey[Out]{}).(chan Out)
		for {
			it, err := in.Consume(ctx)
			if err != nil {
				return err
			}
			if it.IsEnd() {
				return it.Err()
			}
			if !it.IsValue() {
				continue
			}
			if resultCh == nil {
				continue
			}
			select {
			case resultCh <- it.Value():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// CompositeTransform embeds a whole compiled sub-plan as a single flow.
// Transform node (spec §4.8): each invocation re-instantiates the sub-plan
// (fresh streams, fresh per-node state) against a single fed item and
// collects its single emitted result. SubPlan must have exactly one
// FeedSource-backed source and one CollectSink-backed sink; everything
// between them is ordinary flow topology, built once and reused across
// invocations since plan.Plan is an immutable blueprint.
type CompositeTransform[In, Out any] struct {
	SubPlan *plan.Plan
	Parent  *Context
	Inherit InheritOptions
}

// OnItem satisfies flow.Transform.
func (c *CompositeTransform[In, Out]) OnItem(ctx context.Context, item In) (Out, error) {
	var zero Out
	resultCh := make(chan Out, 1)

	itemCtx := context.WithValue(ctx, compositeItemKey[In]{}, item)
	itemCtx = context.WithValue(itemCtx, compositeResultKey[Out]{}, resultCh)

	child := c.Parent.clone(c.Inherit.Parameters, c.Inherit.Items, c.Inherit.Properties)

	if err := NewEngine().Run(itemCtx, c.SubPlan, child); err != nil {
		return zero, err
	}
	select {
	case r := <-resultCh:
		return r, nil
	default:
		return zero, errors.New("engine: composite sub-plan completed without producing a result")
	}
}
