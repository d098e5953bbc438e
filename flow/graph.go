package flow

import (
	"context"
	"sort"

	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
)

type nodeMeta struct {
	id              string
	kind            plan.Kind
	requiredInputs  []string
	connectedInputs map[string]bool
	hasOutput       bool
	outputConnected bool
}

// Graph is the mutable builder described in spec §3/§9: callers register
// nodes with the generic AddXxx constructors, wire them with Connect, and
// call Build to obtain a frozen, validated plan.Plan. A zero-value Graph is
// not ready to use; create one with NewGraph.
type Graph struct {
	metas map[string]*nodeMeta
	order []string
	nodes map[string]*plan.Node
	edges []*plan.Edge

	violations []error
}

// NewGraph creates an empty builder.
func NewGraph() *Graph {
	return &Graph{
		metas: make(map[string]*nodeMeta),
		nodes: make(map[string]*plan.Node),
	}
}

func (g *Graph) addNode(id string, kind plan.Kind, inputs []string, hasOutput bool, run func(context.Context, plan.RunEnv) error) {
	if _, exists := g.metas[id]; exists {
		g.violations = append(g.violations, newViolation("duplicate node id %q", id))
		return
	}
	connected := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		connected[in] = false
	}
	g.metas[id] = &nodeMeta{id: id, kind: kind, requiredInputs: inputs, connectedInputs: connected, hasOutput: hasOutput}
	g.order = append(g.order, id)

	ports := make([]plan.PortSpec, len(inputs))
	for i, in := range inputs {
		ports[i] = plan.PortSpec{Name: in}
	}
	g.nodes[id] = &plan.Node{ID: id, Kind: kind, DisplayName: id, Inputs: ports, HasOutput: hasOutput, Run: run}
}

// AddSource registers a Source node with no input ports.
func AddSource[T any](g *Graph, id string, src Source[T]) OutputPort[T] {
	g.addNode(id, plan.KindSource, nil, true, func(ctx context.Context, env plan.RunEnv) error {
		out, err := src.Run(ctx)
		if err != nil {
			return err
		}
		env.PublishStream(id, "out", out)
		return out.CloseErr()
	})
	return OutputPort[T]{nodeID: id}
}

// AddTransform registers a Transform node. The engine drives one goroutine
// that consumes "in", invokes OnItem through the node's resilience policy,
// and produces to "out", forwarding watermarks unchanged.
func AddTransform[In, Out any](g *Graph, id string, t Transform[In, Out]) (InputPort[In], OutputPort[Out]) {
	g.addNode(id, plan.KindTransform, []string{"in"}, true, func(ctx context.Context, env plan.RunEnv) error {
		inAny, err := env.AwaitStream(ctx, id, "in")
		if err != nil {
			return err
		}
		in := inAny.(*stream.Stream[In])
		out := stream.New[Out](id, env.OutputCapacity(id))
		env.PublishStream(id, "out", out)

		fatal := runTransformLoop(ctx, env, id, in, out, t.OnItem)
		out.Close(fatal)
		return fatal
	})
	return InputPort[In]{nodeID: id, port: "in"}, OutputPort[Out]{nodeID: id}
}

func runTransformLoop[In, Out any](ctx context.Context, env plan.RunEnv, id string, in *stream.Stream[In], out *stream.Stream[Out], onItem func(context.Context, In) (Out, error)) error {
	for {
		it, err := in.Consume(ctx)
		if err != nil {
			return err
		}
		if it.IsEnd() {
			return it.Err()
		}
		if it.IsWatermark() {
			if err := out.ProduceWatermark(ctx, it.Watermark()); err != nil {
				return err
			}
			continue
		}

		v := it.Value()
		var result Out
		execErr := env.Execute(id, func(ctx context.Context) error {
			r, err := onItem(ctx, v)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		if execErr != nil {
			if env.ContinueOnError(id) {
				env.Logger().Warn("transform %s dropped item after exhausting retries: %v", id, execErr)
				continue
			}
			return execErr
		}
		if err := out.Produce(ctx, result); err != nil {
			return err
		}
	}
}

// AddTap registers a Tap node: every input item is forwarded unchanged to
// the main output, and a copy is delivered to SideSink (spec §4 "Tap").
// SideSink errors are governed by the node's resilience policy exactly like
// a Transform's OnItem.
func AddTap[T any](g *Graph, id string, t Tap[T]) (InputPort[T], OutputPort[T]) {
	g.addNode(id, plan.KindTap, []string{"in"}, true, func(ctx context.Context, env plan.RunEnv) error {
		inAny, err := env.AwaitStream(ctx, id, "in")
		if err != nil {
			return err
		}
		in := inAny.(*stream.Stream[T])
		out := stream.New[T](id, env.OutputCapacity(id))
		env.PublishStream(id, "out", out)

		fatal := runTapLoop(ctx, env, id, in, out, t.SideSink)
		out.Close(fatal)
		return fatal
	})
	return InputPort[T]{nodeID: id, port: "in"}, OutputPort[T]{nodeID: id}
}

func runTapLoop[T any](ctx context.Context, env plan.RunEnv, id string, in, out *stream.Stream[T], sideSink func(context.Context, T) error) error {
	for {
		it, err := in.Consume(ctx)
		if err != nil {
			return err
		}
		if it.IsEnd() {
			return it.Err()
		}
		if it.IsWatermark() {
			if err := out.ProduceWatermark(ctx, it.Watermark()); err != nil {
				return err
			}
			continue
		}
		v := it.Value()
		if sideSink != nil {
			execErr := env.Execute(id, func(ctx context.Context) error { return sideSink(ctx, v) })
			if execErr != nil {
				if !env.ContinueOnError(id) {
					return execErr
				}
				env.Logger().Warn("tap %s side sink dropped item after exhausting retries: %v", id, execErr)
			}
		}
		if err := out.Produce(ctx, v); err != nil {
			return err
		}
	}
}

// AddSink registers a terminal Sink node with no output port.
func AddSink[T any](g *Graph, id string, sink Sink[T]) InputPort[T] {
	g.addNode(id, plan.KindSink, []string{"in"}, false, func(ctx context.Context, env plan.RunEnv) error {
		inAny, err := env.AwaitStream(ctx, id, "in")
		if err != nil {
			return err
		}
		in := inAny.(*stream.Stream[T])
		return sink.Run(ctx, in)
	})
	return InputPort[T]{nodeID: id, port: "in"}
}

// PreconfiguredNode describes a node assembled outside the AddXxx
// constructors: its kind, declared input port names, whether it produces an
// output, and the Run closure the engine invokes. Use it for node instances
// built by a registry or plugin mechanism that hands back a complete
// plan.Node-shaped value rather than a Source/Transform/Tap/Sink to wrap.
type PreconfiguredNode struct {
	Kind      plan.Kind
	Inputs    []string
	HasOutput bool
	Run       func(ctx context.Context, env plan.RunEnv) error
}

// AddPreconfiguredInstance binds an already-constructed node to id (spec
// §4.2 "add_preconfigured_instance(id, instance)"), for callers that build a
// node's Run closure themselves instead of going through AddSource,
// AddTransform, AddTap, or AddSink. The first declared input port (if any)
// is returned as handle<In>; the output (if HasOutput) is returned as
// handle<Out>, matching every other AddXxx constructor's "in"/"out"
// convention.
func AddPreconfiguredInstance[In, Out any](g *Graph, id string, n PreconfiguredNode) (InputPort[In], OutputPort[Out]) {
	g.addNode(id, n.Kind, n.Inputs, n.HasOutput, n.Run)

	var in InputPort[In]
	if len(n.Inputs) > 0 {
		in = InputPort[In]{nodeID: id, port: n.Inputs[0]}
	}
	var out OutputPort[Out]
	if n.HasOutput {
		out = OutputPort[Out]{nodeID: id}
	}
	return in, out
}

// ConnectOption configures the stream backing a single edge.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	capacity     int
	capacitySet  bool
}

// WithCapacity sets the bounded buffer capacity for the edge's stream. A
// capacity of 0 or less is an explicit request for a zero-size buffer and
// is rejected at Build (spec §8 "Zero-size buffer is rejected at plan
// build"); omit WithCapacity entirely to get stream.DefaultBufferCapacity.
func WithCapacity(capacity int) ConnectOption {
	return func(c *connectConfig) { c.capacity = capacity; c.capacitySet = true }
}

// Connect wires a producer's output to a consumer's input port. T must
// match on both sides, which the Go compiler enforces at the call site.
func Connect[T any](g *Graph, out OutputPort[T], in InputPort[T], opts ...ConnectOption) error {
	cfg := connectConfig{capacity: stream.DefaultBufferCapacity}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.capacitySet && cfg.capacity <= 0 {
		err := newViolation("edge %s -> %s:%s requests a zero-size buffer", out.nodeID, in.nodeID, in.port)
		g.violations = append(g.violations, err)
		return err
	}

	producer, ok := g.metas[out.nodeID]
	if !ok {
		err := newViolation("connect references unknown producer node %q", out.nodeID)
		g.violations = append(g.violations, err)
		return err
	}
	consumer, ok := g.metas[in.nodeID]
	if !ok {
		err := newViolation("connect references unknown consumer node %q", in.nodeID)
		g.violations = append(g.violations, err)
		return err
	}
	if _, known := consumer.connectedInputs[in.port]; !known {
		err := newViolation("node %q has no input port %q", in.nodeID, in.port)
		g.violations = append(g.violations, err)
		return err
	}
	if producer.outputConnected {
		err := newViolation("node %q output is already connected; fan-out requires an explicit broadcast transform", out.nodeID)
		g.violations = append(g.violations, err)
		return err
	}
	if consumer.connectedInputs[in.port] {
		err := newViolation("node %q input %q is already connected", in.nodeID, in.port)
		g.violations = append(g.violations, err)
		return err
	}

	producer.outputConnected = true
	consumer.connectedInputs[in.port] = true
	g.edges = append(g.edges, &plan.Edge{
		FromNode: out.nodeID,
		FromPort: "out",
		ToNode:   in.nodeID,
		ToPort:   in.port,
		Capacity: cfg.capacity,
	})
	return nil
}

// Build validates the graph and freezes it into a plan.Plan. All structural
// violations are reported together in a single *BuildError.
func (g *Graph) Build() (*plan.Plan, error) {
	var violations []error
	violations = append(violations, g.violations...)

	for _, id := range g.order {
		m := g.metas[id]
		for port, connected := range m.connectedInputs {
			if !connected {
				violations = append(violations, newViolation("node %q input %q is not connected", id, port))
			}
		}
		if m.hasOutput && !m.outputConnected {
			violations = append(violations, newViolation("node %q output is not connected", id))
		}
	}

	if cyc := g.findCycle(); cyc != nil {
		violations = append(violations, newViolation("cycle detected among nodes: %v", cyc))
	}

	if len(violations) > 0 {
		return nil, &BuildError{Violations: violations}
	}

	p := &plan.Plan{Edges: g.edges}
	for _, id := range g.order {
		p.Nodes = append(p.Nodes, g.nodes[id])
	}
	return p, nil
}

// findCycle runs a Kahn's-algorithm topological sort over the declared
// edges and returns the ids still unresolved (the nodes of a cycle plus any
// node downstream of one) once no further zero-in-degree node remains, or
// nil if the graph is acyclic.
func (g *Graph) findCycle() []string {
	inDegree := make(map[string]int, len(g.order))
	adj := make(map[string][]string, len(g.order))
	for _, id := range g.order {
		inDegree[id] = 0
	}
	for _, e := range g.edges {
		inDegree[e.ToNode]++
		adj[e.FromNode] = append(adj[e.FromNode], e.ToNode)
	}

	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		next := append([]string{}, adj[id]...)
		sort.Strings(next)
		for _, n := range next {
			inDegree[n]--
			if inDegree[n] == 0 {
				queue = append(queue, n)
				sort.Strings(queue)
			}
		}
	}

	if visited == len(g.order) {
		return nil
	}
	var remaining []string
	for _, id := range g.order {
		if inDegree[id] > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}
