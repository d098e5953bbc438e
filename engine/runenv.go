package engine

import (
	"context"
	"sync"

	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/resilience"
	"github.com/flowmesh/flowmesh/stream"
)

type bindingKey struct {
	nodeID string
	port   string
}

type binding struct {
	ready chan struct{}
	once  sync.Once
	value any
}

// runEnv implements plan.RunEnv for one Engine.Run invocation. Each
// (producer node, "out") pair owns exactly one binding slot; an input
// port's AwaitStream call is redirected to its producer's slot via edgeFrom,
// so the producer and consumer share the same published stream instance
// instead of copying items through an intermediate pump (spec §3: a stream
// is produced by exactly one node and consumed by exactly one downstream
// node).
type runEnv struct {
	ctx  context.Context
	ectx *Context
	plan *plan.Plan

	edgeFrom   map[bindingKey]string
	outputCap  map[string]int

	mu       sync.Mutex
	bindings map[bindingKey]*binding
}

func newRunEnv(ctx context.Context, ectx *Context, p *plan.Plan) *runEnv {
	e := &runEnv{
		ctx:      ctx,
		ectx:     ectx,
		plan:     p,
		edgeFrom: make(map[bindingKey]string, len(p.Edges)),
		outputCap: make(map[string]int, len(p.Edges)),
		bindings: make(map[bindingKey]*binding),
	}
	for _, edge := range p.Edges {
		e.edgeFrom[bindingKey{edge.ToNode, edge.ToPort}] = edge.FromNode
		e.outputCap[edge.FromNode] = edge.Capacity
	}
	return e
}

func (e *runEnv) bindingFor(key bindingKey) *binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bindings[key]
	if !ok {
		b = &binding{ready: make(chan struct{})}
		e.bindings[key] = b
	}
	return b
}

func (e *runEnv) Context() context.Context { return e.ctx }

func (e *runEnv) Logger() plan.Logger { return e.ectx.Logger }

func (e *runEnv) Param(key string) (any, bool) {
	v, ok := e.ectx.Parameters[key]
	return v, ok
}

// OutputCapacity returns the buffer capacity declared for nodeID's single
// outbound edge, or stream.DefaultBufferCapacity if nodeID has none (a
// terminal sink, which never calls this).
func (e *runEnv) OutputCapacity(nodeID string) int {
	if c, ok := e.outputCap[nodeID]; ok && c > 0 {
		return c
	}
	return stream.DefaultBufferCapacity
}

func (e *runEnv) AwaitStream(ctx context.Context, nodeID, port string) (any, error) {
	key := bindingKey{nodeID, port}
	if port != "out" {
		if producer, ok := e.edgeFrom[key]; ok {
			key = bindingKey{producer, "out"}
		}
	}
	b := e.bindingFor(key)
	select {
	case <-b.ready:
		return b.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *runEnv) PublishStream(nodeID, port string, value any) {
	b := e.bindingFor(bindingKey{nodeID, port})
	b.once.Do(func() {
		b.value = value
		close(b.ready)
	})
}

func (e *runEnv) Execute(nodeID string, attempt func(ctx context.Context) error) error {
	policy := e.ectx.PolicyFor(nodeID)
	var breaker *resilience.CircuitBreaker
	if policy.Breaker != nil {
		breaker = e.ectx.BreakerManager.Get(nodeID, *policy.Breaker)
	}
	return resilience.Run(e.ctx, policy, breaker, e.ectx.Clock, attempt)
}

func (e *runEnv) ContinueOnError(nodeID string) bool {
	return e.ectx.PolicyFor(nodeID).ContinueOnError
}
