package engine

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/connector"
	"github.com/flowmesh/flowmesh/connector/record/sqlite"
	"github.com/flowmesh/flowmesh/flow"
)

// TestCompositeTransformDoublesThroughSubPlan is scenario S6: the parent
// sends 42, the sub-plan's FeedSource reads 42 from the sub-context,
// round-trips it through a SQLite-backed RecordStore (the record store
// exercises connector.RecordStore inside the sub-plan instead of being a
// pass-through, and needs no external service since the file is :memory:),
// doubles it, and CollectSink writes 84 back to the sub-context. The
// parent's downstream sink must see 84.
func TestCompositeTransformDoublesThroughSubPlan(t *testing.T) {
	ctx := context.Background()

	store := sqlite.NewStore(":memory:")
	require.NoError(t, store.Open(ctx))
	t.Cleanup(func() { store.Close(ctx) })

	sub := flow.NewGraph()
	feedOut := flow.AddSource[int](sub, "feed", FeedSource[int]())
	feedIn, doubleOut := flow.AddTransform[int, int](sub, "double", flow.TransformFunc[int, int](
		func(ctx context.Context, v int) (int, error) {
			if err := store.WriteBatch(ctx, []connector.Record{
				{Key: "current", Value: []byte(strconv.Itoa(v))},
			}); err != nil {
				return 0, err
			}
			rec, err := store.Read(ctx, "current")
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(string(rec.Value))
			if err != nil {
				return 0, err
			}
			return n * 2, nil
		},
	))
	require.NoError(t, flow.Connect(sub, feedOut, feedIn))
	collectIn := flow.AddSink[int](sub, "collect", CollectSink[int]())
	require.NoError(t, flow.Connect(sub, doubleOut, collectIn))

	subPlan, err := sub.Build()
	require.NoError(t, err)

	parentCtx := NewContext()

	parent := flow.NewGraph()
	parentSrcOut := flow.AddSource[int](parent, "src", intSource([]int{42}))
	compositeIn, compositeOut := flow.AddTransform[int, int](parent, "composite", &CompositeTransform[int, int]{
		SubPlan: subPlan,
		Parent:  parentCtx,
	})
	require.NoError(t, flow.Connect(parent, parentSrcOut, compositeIn))

	var results []int
	sinkIn := flow.AddSink[int](parent, "sink", collectingSink(&results))
	require.NoError(t, flow.Connect(parent, compositeOut, sinkIn))

	parentPlan, err := parent.Build()
	require.NoError(t, err)

	require.NoError(t, NewEngine().Run(ctx, parentPlan, parentCtx))
	require.Equal(t, []int{84}, results)
}
