package operator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/stream"
	"github.com/flowmesh/flowmesh/window"
)

type pair struct {
	L, R int
}

func drainOut[T any](t *testing.T, ctx context.Context, s *stream.Stream[T]) []T {
	t.Helper()
	var results []T
	for {
		it, err := s.Consume(ctx)
		require.NoError(t, err)
		if it.IsEnd() {
			return results
		}
		if it.IsValue() {
			results = append(results, it.Value())
		}
	}
}

func TestRunJoinInnerWholeStreamMatchesByKey(t *testing.T) {
	ctx := context.Background()
	left := stream.New[int]("left", 8)
	right := stream.New[int]("right", 8)
	out := stream.New[pair]("out", 8)

	go func() {
		for _, v := range []int{1, 2, 3} {
			_ = left.Produce(ctx, v)
		}
		left.Close(nil)
	}()
	go func() {
		for _, v := range []int{2, 3, 4} {
			_ = right.Produce(ctx, v)
		}
		right.Close(nil)
	}()

	spec := JoinSpec[int, int, int, pair]{
		KeyLeft:  func(v int) int { return v },
		KeyRight: func(v int) int { return v },
		Combine:  func(l, r int) pair { return pair{L: l, R: r} },
		JoinType: JoinInner,
	}

	err := RunJoin[int, int, int, pair](ctx, fakeEnv{ctx: ctx}, "join", spec, left, right, out)
	require.NoError(t, err)
	out.Close(nil) // RunJoin leaves closing out to its caller

	results := drainOut(t, ctx, out)
	require.ElementsMatch(t, []pair{{2, 2}, {3, 3}}, results)
}

func TestRunJoinLeftOuterEmitsUnmatchedLeft(t *testing.T) {
	ctx := context.Background()
	left := stream.New[int]("left", 8)
	right := stream.New[int]("right", 8)
	out := stream.New[pair]("out", 8)

	go func() {
		for _, v := range []int{1, 2} {
			_ = left.Produce(ctx, v)
		}
		left.Close(nil)
	}()
	go func() {
		_ = right.Produce(ctx, 2)
		right.Close(nil)
	}()

	spec := JoinSpec[int, int, int, pair]{
		KeyLeft:  func(v int) int { return v },
		KeyRight: func(v int) int { return v },
		Combine:  func(l, r int) pair { return pair{L: l, R: r} },
		LeftOnly: func(l int) pair { return pair{L: l, R: -1} },
		JoinType: JoinLeftOuter,
	}

	err := RunJoin[int, int, int, pair](ctx, fakeEnv{ctx: ctx}, "join", spec, left, right, out)
	require.NoError(t, err)
	out.Close(nil) // RunJoin leaves closing out to its caller

	results := drainOut(t, ctx, out)
	require.ElementsMatch(t, []pair{{2, 2}, {1, -1}}, results)
}

func TestRunJoinWindowedFinalizesAtEndOfStreamWatermark(t *testing.T) {
	ctx := context.Background()
	left := stream.New[int]("left", 8)
	right := stream.New[int]("right", 8)
	out := stream.New[pair]("out", 8)

	go func() {
		_ = left.Produce(ctx, 1)
		_ = left.ProduceWatermark(ctx, stream.Watermark{At: stream.MaxTimestamp})
		left.Close(nil)
	}()
	go func() {
		_ = right.Produce(ctx, 2)
		_ = right.ProduceWatermark(ctx, stream.Watermark{At: stream.MaxTimestamp})
		right.Close(nil)
	}()

	spec := JoinSpec[int, int, int, pair]{
		KeyLeft:        func(v int) int { return v },
		KeyRight:       func(v int) int { return v },
		Combine:        func(l, r int) pair { return pair{L: l, R: r} },
		LeftOnly:       func(l int) pair { return pair{L: l, R: -1} },
		RightOnly:      func(r int) pair { return pair{L: -1, R: r} },
		JoinType:       JoinFullOuter,
		WindowAssigner: window.NewTumbling(time.Minute),
		EventTimeLeft:  func(int) stream.Timestamp { return stream.MinTimestamp },
		EventTimeRight: func(int) stream.Timestamp { return stream.MinTimestamp },
	}

	err := RunJoin[int, int, int, pair](ctx, fakeEnv{ctx: ctx}, "join", spec, left, right, out)
	require.NoError(t, err)
	out.Close(nil) // RunJoin leaves closing out to its caller

	results := drainOut(t, ctx, out)
	require.ElementsMatch(t, []pair{{1, -1}, {-1, 2}}, results)
}

func TestRunJoinFullOuterEmitsBothUnmatchedSides(t *testing.T) {
	ctx := context.Background()
	left := stream.New[int]("left", 8)
	right := stream.New[int]("right", 8)
	out := stream.New[pair]("out", 8)

	go func() {
		_ = left.Produce(ctx, 1)
		left.Close(nil)
	}()
	go func() {
		_ = right.Produce(ctx, 2)
		right.Close(nil)
	}()

	spec := JoinSpec[int, int, int, pair]{
		KeyLeft:   func(v int) int { return v },
		KeyRight:  func(v int) int { return v },
		Combine:   func(l, r int) pair { return pair{L: l, R: r} },
		LeftOnly:  func(l int) pair { return pair{L: l, R: -1} },
		RightOnly: func(r int) pair { return pair{L: -1, R: r} },
		JoinType:  JoinFullOuter,
	}

	err := RunJoin[int, int, int, pair](ctx, fakeEnv{ctx: ctx}, "join", spec, left, right, out)
	require.NoError(t, err)
	out.Close(nil) // RunJoin leaves closing out to its caller

	results := drainOut(t, ctx, out)
	require.ElementsMatch(t, []pair{{1, -1}, {-1, 2}}, results)
}
