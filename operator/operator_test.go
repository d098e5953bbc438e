package operator

import (
	"context"

	"github.com/flowmesh/flowmesh/flowlog"
	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
)

// fakeEnv is a minimal plan.RunEnv for exercising RunJoin/RunAggregate
// directly, without a compiled plan.Plan or a real engine.runEnv.
type fakeEnv struct {
	ctx context.Context
}

func (e fakeEnv) Context() context.Context   { return e.ctx }
func (e fakeEnv) Logger() plan.Logger        { return flowlog.NoOp{} }
func (e fakeEnv) Param(key string) (any, bool)       { return nil, false }
func (e fakeEnv) OutputCapacity(nodeID string) int    { return stream.DefaultBufferCapacity }
func (e fakeEnv) AwaitStream(ctx context.Context, nodeID, port string) (any, error) {
	return nil, nil
}
func (e fakeEnv) PublishStream(nodeID, port string, value any) {}
func (e fakeEnv) Execute(nodeID string, attempt func(ctx context.Context) error) error {
	return attempt(e.ctx)
}
func (e fakeEnv) ContinueOnError(nodeID string) bool { return false }
