package flow

import (
	"context"

	"github.com/flowmesh/flowmesh/operator"
	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
)

// AddJoin registers a Join node with two input ports, "left" and "right".
// The matching algorithm lives in package operator; AddJoin only wires its
// inputs and output into the plan (spec §4.5).
func AddJoin[K comparable, L, R, Out any](g *Graph, id string, spec operator.JoinSpec[K, L, R, Out]) (InputPort[L], InputPort[R], OutputPort[Out]) {
	g.addNode(id, plan.KindJoin, []string{"left", "right"}, true, func(ctx context.Context, env plan.RunEnv) error {
		leftAny, err := env.AwaitStream(ctx, id, "left")
		if err != nil {
			return err
		}
		rightAny, err := env.AwaitStream(ctx, id, "right")
		if err != nil {
			return err
		}
		left := leftAny.(*stream.Stream[L])
		right := rightAny.(*stream.Stream[R])
		out := stream.New[Out](id, env.OutputCapacity(id))
		env.PublishStream(id, "out", out)

		fatal := operator.RunJoin(ctx, env, id, spec, left, right, out)
		out.Close(fatal)
		return fatal
	})
	return InputPort[L]{nodeID: id, port: "left"}, InputPort[R]{nodeID: id, port: "right"}, OutputPort[Out]{nodeID: id}
}
