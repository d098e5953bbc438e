// Package plan defines the compiled, immutable artifact produced by
// flow.Graph.Build(): the frozen set of nodes and edges described in spec
// §3 ("Plan: frozen set of nodes + edges; acyclic; every input port
// connected; every source has zero inputs; every sink has zero outputs").
//
// plan intentionally knows nothing about the engine that executes it; the
// RunEnv interface is the narrow seam a node's Run closure uses to reach
// engine services (logger, resilience, stream bindings) without creating an
// import cycle between plan and engine.
package plan

import "context"

// Kind tags the variant of a compiled node.
type Kind int

const (
	KindSource Kind = iota
	KindTransform
	KindJoin
	KindAggregator
	KindTap
	KindSink
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindTransform:
		return "transform"
	case KindJoin:
		return "join"
	case KindAggregator:
		return "aggregator"
	case KindTap:
		return "tap"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// PortSpec names one of a node's input ports, in insertion order.
type PortSpec struct {
	Name     string
	Capacity int
}

// Node is one compiled node: identity, kind, declared ports, and the
// type-erased Run closure built by the generic flow.AddXxx constructors.
type Node struct {
	ID          string
	Kind        Kind
	DisplayName string
	Inputs      []PortSpec
	HasOutput   bool

	// Run executes the node's full lifecycle against env. It returns the
	// node's fatal error, if any; a nil return (with the node's outbound
	// streams already closed) is a normal completion.
	Run func(ctx context.Context, env RunEnv) error
}

// Edge is one typed connection: identity = (producer, producer-port,
// consumer, consumer-port), each edge owning exactly one stream instance
// per run (spec §3's Edge invariants).
type Edge struct {
	FromNode string
	FromPort string
	ToNode   string
	ToPort   string
	Capacity int
}

// Plan is the frozen, acyclic graph produced by Build().
type Plan struct {
	Nodes []*Node
	Edges []*Edge
}

// NodeByID returns the node with the given id, or nil.
func (p *Plan) NodeByID(id string) *Node {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// RunEnv is the seam a compiled node's Run closure uses to reach per-run
// engine services. Implemented by engine.runEnv; never implemented by plan
// itself, which keeps plan free of any dependency on engine or resilience.
type RunEnv interface {
	// Context returns the run's (possibly already-cancelled) context.
	Context() context.Context

	// Logger returns the logger configured for this run.
	Logger() Logger

	// Param looks up a user-supplied parameter from the execution context.
	Param(key string) (any, bool)

	// OutputCapacity returns the buffer capacity declared for nodeID's
	// outbound edge, for a Run closure that creates its own output stream.
	OutputCapacity(nodeID string) int

	// AwaitStream blocks until the named port of nodeID has been published
	// (by its producer, for an output port; an input port resolves to the
	// output port connected to it) and returns the bound value, type-erased
	// as any. It unblocks
	// early with an error if ctx is cancelled first.
	AwaitStream(ctx context.Context, nodeID, port string) (any, error)

	// PublishStream makes value available to AwaitStream callers waiting on
	// (nodeID, port). Exactly one call per (nodeID, port) per run.
	PublishStream(nodeID, port string, value any)

	// Execute runs attempt through nodeID's configured retry and circuit
	// breaker policy (spec §4.7). It returns the final error, which may be
	// a breaker-open fast-fail error that never invoked attempt.
	Execute(nodeID string, attempt func(ctx context.Context) error) error

	// ContinueOnError reports whether nodeID drops permanently-failed items
	// instead of failing the node outright.
	ContinueOnError(nodeID string) bool
}

// Logger is the minimal logging surface plan needs, satisfied by
// flowlog.Logger without plan importing the flowlog package's concrete
// types (keeps plan dependency-light; engine's RunEnv implementation passes
// its real flowlog.Logger through unchanged since the interfaces match).
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}
