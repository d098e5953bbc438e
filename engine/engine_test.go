package engine

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/operator"
	"github.com/flowmesh/flowmesh/stream"
	"github.com/flowmesh/flowmesh/window"
)

func intSource(vals []int) flow.Source[int] {
	return flow.SourceFunc[int](func(ctx context.Context) (*stream.Stream[int], error) {
		s := stream.New[int]("ints", 8)
		go func() {
			for _, v := range vals {
				if err := s.Produce(ctx, v); err != nil {
					s.Close(err)
					return
				}
			}
			s.Close(nil)
		}()
		return s, nil
	})
}

func collectingSink(out *[]int) flow.Sink[int] {
	return flow.SinkFunc[int](func(ctx context.Context, in *stream.Stream[int]) error {
		for {
			it, err := in.Consume(ctx)
			if err != nil {
				return err
			}
			if it.IsEnd() {
				return it.Err()
			}
			if it.IsValue() {
				*out = append(*out, it.Value())
			}
		}
	})
}

func TestEngineRunsSourceTransformSink(t *testing.T) {
	g := flow.NewGraph()
	srcOut := flow.AddSource[int](g, "src", intSource([]int{1, 2, 3, 4}))
	in, tOut := flow.AddTransform[int, int](g, "double", flow.TransformFunc[int, int](func(ctx context.Context, v int) (int, error) {
		return v * 2, nil
	}))
	require.NoError(t, flow.Connect(g, srcOut, in))

	var results []int
	sinkIn := flow.AddSink[int](g, "sink", collectingSink(&results))
	require.NoError(t, flow.Connect(g, tOut, sinkIn))

	p, err := g.Build()
	require.NoError(t, err)

	require.NoError(t, NewEngine().Run(context.Background(), p, NewContext()))
	require.Equal(t, []int{2, 4, 6, 8}, results)
}

func TestEngineAggregatesTumblingWindowSums(t *testing.T) {
	g := flow.NewGraph()

	base := stream.MinTimestamp
	srcOut := flow.AddSource[int](g, "src", flow.SourceFunc[int](func(ctx context.Context) (*stream.Stream[int], error) {
		s := stream.New[int]("ints", 8)
		go func() {
			for _, v := range []int{1, 2, 3, 100, 200} {
				_ = s.Produce(ctx, v)
			}
			_ = s.ProduceWatermark(ctx, stream.Watermark{At: stream.MaxTimestamp})
			s.Close(nil)
		}()
		return s, nil
	}))

	spec := operator.AggregateSpec[int, int, int, int]{
		KeyOf: func(v int) int { return 0 },
		EventTime: func(v int) stream.Timestamp {
			if v < 100 {
				return base
			}
			return base.Add(10 * time.Minute)
		},
		CreateAccumulator: func() int { return 0 },
		Accumulate:        func(acc int, v int) int { return acc + v },
		Result:            func(acc int) int { return acc },
		WindowAssigner:    window.NewTumbling(5 * time.Minute),
	}
	in, aggOut := flow.AddAggregate[int, int, int, int](g, "sum", spec)
	require.NoError(t, flow.Connect(g, srcOut, in))

	var results []int
	sinkIn := flow.AddSink[int](g, "sink", collectingSink(&results))
	require.NoError(t, flow.Connect(g, aggOut, sinkIn))

	p, err := g.Build()
	require.NoError(t, err)
	require.NoError(t, NewEngine().Run(context.Background(), p, NewContext()))

	sort.Ints(results)
	require.Equal(t, []int{6, 300}, results)
}
