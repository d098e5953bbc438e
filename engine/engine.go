package engine

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flowmesh/flowmesh/plan"
)

// Engine runs a compiled plan.Plan to completion.
type Engine struct{}

// NewEngine returns a ready-to-use Engine. Engine holds no state of its
// own; every run gets a fresh runEnv, so one Engine value can run many
// plans, sequentially or concurrently.
func NewEngine() *Engine { return &Engine{} }

// Run executes every node of p concurrently, one goroutine each, until
// every node returns. Normal shutdown happens when every source reaches
// end-of-stream and that completion propagates downstream to every sink
// (each node's Run closure returns nil once its own inputs end cleanly and
// its own output stream has been closed to match). Abnormal shutdown
// happens when any node returns a non-nil error: the run's shared context is
// cancelled, which unblocks every other node's blocking Consume/Produce/
// AwaitStream call with a context error, and Run returns the first error
// reported (spec §5).
func (en *Engine) Run(ctx context.Context, p *plan.Plan, ectx *Context) error {
	if ectx == nil {
		ectx = NewContext()
	}

	g, gctx := errgroup.WithContext(ctx)
	env := newRunEnv(gctx, ectx, p)

	ectx.Logger.Debug("engine: run %s starting %d nodes", ectx.RunID, len(p.Nodes))

	for _, node := range p.Nodes {
		node := node
		spanID := uuid.NewString()
		g.Go(func() error {
			ectx.Logger.Debug("engine: run %s node %s span %s starting", ectx.RunID, node.ID, spanID)
			ectx.Tracer.OnNodeStart(node.ID)
			err := node.Run(gctx, env)
			ectx.Tracer.OnNodeEnd(node.ID, err)
			if err != nil {
				ectx.Logger.Error("engine: run %s node %s span %s failed: %v", ectx.RunID, node.ID, spanID, err)
				ectx.ErrorHandler.OnError(node.ID, err)
			}
			return err
		})
	}

	return g.Wait()
}
