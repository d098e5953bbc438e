package operator

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/stream"
	"github.com/flowmesh/flowmesh/window"
)

type sumState struct {
	Count int
	Total int
}

func sumSpec() AggregateSpec[int, string, sumState, sumState] {
	return AggregateSpec[int, string, sumState, sumState]{
		KeyOf:             func(v int) string { return "k" },
		EventTime:         func(v int) stream.Timestamp { return stream.MinTimestamp },
		CreateAccumulator: func() sumState { return sumState{} },
		Accumulate: func(acc sumState, v int) sumState {
			acc.Count++
			acc.Total += v
			return acc
		},
		Result:         func(acc sumState) sumState { return acc },
		WindowAssigner: window.NewTumbling(time.Minute),
	}
}

func TestRunAggregateFoldsWithinWindow(t *testing.T) {
	ctx := context.Background()
	in := stream.New[int]("in", 8)
	out := stream.New[sumState]("out", 8)

	go func() {
		for _, v := range []int{1, 2, 3} {
			_ = in.Produce(ctx, v)
		}
		_ = in.ProduceWatermark(ctx, stream.Watermark{At: stream.MaxTimestamp})
		in.Close(nil)
	}()

	err := RunAggregate[int, string, sumState, sumState](ctx, fakeEnv{ctx: ctx}, "sum", sumSpec(), in, out)
	require.NoError(t, err)

	it, err := out.Consume(ctx)
	require.NoError(t, err)
	require.True(t, it.IsValue())
	require.True(t, cmp.Equal(sumState{Count: 3, Total: 6}, it.Value()))
}

func TestRunAggregateDropsLateItemsByDefault(t *testing.T) {
	ctx := context.Background()
	in := stream.New[int]("in", 8)
	out := stream.New[sumState]("out", 8)

	go func() {
		_ = in.Produce(ctx, 1)
		_ = in.ProduceWatermark(ctx, stream.Watermark{At: stream.MaxTimestamp})
		// Arrives after its window (MinTimestamp..+1min) has already finalized.
		_ = in.Produce(ctx, 100)
		in.Close(nil)
	}()

	spec := sumSpec()
	spec.LatePolicy = LateDrop
	err := RunAggregate[int, string, sumState, sumState](ctx, fakeEnv{ctx: ctx}, "sum", spec, in, out)
	require.NoError(t, err)
	out.Close(nil) // RunAggregate leaves closing out to its caller

	var results []sumState
	for {
		it, err := out.Consume(ctx)
		require.NoError(t, err)
		if it.IsEnd() {
			break
		}
		if it.IsValue() {
			results = append(results, it.Value())
		}
	}
	require.Len(t, results, 1)
	require.Equal(t, sumState{Count: 1, Total: 1}, results[0])
}

func TestRunAggregateOrdersByWindowEndThenKey(t *testing.T) {
	ctx := context.Background()
	in := stream.New[int]("in", 8)
	out := stream.New[int]("out", 8)

	spec := AggregateSpec[int, int, int, int]{
		KeyOf: func(v int) int { return v % 10 },
		EventTime: func(v int) stream.Timestamp {
			return stream.MinTimestamp.Add(time.Duration(v/10) * time.Minute)
		},
		CreateAccumulator: func() int { return 0 },
		Accumulate:        func(acc, v int) int { return acc + v },
		Result:            func(acc int) int { return acc },
		WindowAssigner:    window.NewTumbling(time.Minute),
	}

	go func() {
		for _, v := range []int{21, 11, 20, 10} {
			_ = in.Produce(ctx, v)
		}
		_ = in.ProduceWatermark(ctx, stream.Watermark{At: stream.MaxTimestamp})
		in.Close(nil)
	}()

	require.NoError(t, RunAggregate[int, int, int, int](ctx, fakeEnv{ctx: ctx}, "sum", spec, in, out))
	out.Close(nil) // RunAggregate leaves closing out to its caller

	var results []int
	for {
		it, err := out.Consume(ctx)
		require.NoError(t, err)
		if it.IsEnd() {
			break
		}
		if it.IsValue() {
			results = append(results, it.Value())
		}
	}
	require.Equal(t, []int{10, 11, 20, 21}, results)
}
