package flow

import (
	"context"

	"github.com/flowmesh/flowmesh/operator"
	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
)

// AddAggregate registers an Aggregator node. The fold algorithm lives in
// package operator; AddAggregate only wires its single input and output
// into the plan (spec §4.6).
func AddAggregate[In any, K comparable, Acc, Out any](g *Graph, id string, spec operator.AggregateSpec[In, K, Acc, Out]) (InputPort[In], OutputPort[Out]) {
	g.addNode(id, plan.KindAggregator, []string{"in"}, true, func(ctx context.Context, env plan.RunEnv) error {
		inAny, err := env.AwaitStream(ctx, id, "in")
		if err != nil {
			return err
		}
		in := inAny.(*stream.Stream[In])
		out := stream.New[Out](id, env.OutputCapacity(id))
		env.PublishStream(id, "out", out)

		fatal := operator.RunAggregate(ctx, env, id, spec, in, out)
		out.Close(fatal)
		return fatal
	})
	return InputPort[In]{nodeID: id, port: "in"}, OutputPort[Out]{nodeID: id}
}
