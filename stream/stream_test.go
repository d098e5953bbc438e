package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProduceConsumeOrder(t *testing.T) {
	s := New[int]("nums", 4)
	ctx := context.Background()

	go func() {
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Produce(ctx, i))
		}
		s.Close(nil)
	}()

	var got []int
	for {
		it, err := s.Consume(ctx)
		require.NoError(t, err)
		if it.IsEnd() {
			require.NoError(t, it.Err())
			break
		}
		got = append(got, it.Value())
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestCloseWithErrorSurfacesOnConsume(t *testing.T) {
	s := New[string]("s", 2)
	boom := ErrClosed
	s.Close(boom)

	it, err := s.Consume(context.Background())
	require.NoError(t, err)
	require.True(t, it.IsEnd())
	require.ErrorIs(t, it.Err(), boom)
}

func TestProduceBlocksOnFullBuffer(t *testing.T) {
	s := New[int]("bounded", 1)
	ctx := context.Background()
	require.NoError(t, s.Produce(ctx, 1))

	blocked := make(chan error, 1)
	go func() { blocked <- s.Produce(ctx, 2) }()

	select {
	case <-blocked:
		t.Fatal("Produce should have blocked on a full buffer")
	case <-time.After(20 * time.Millisecond):
	}

	it, err := s.Consume(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, it.Value())

	select {
	case err := <-blocked:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Produce never unblocked after the buffer drained")
	}
}

func TestProduceCancellation(t *testing.T) {
	s := New[int]("full", 1)
	ctx := context.Background()
	require.NoError(t, s.Produce(ctx, 1))

	cctx, cancel := context.WithCancel(ctx)
	cancel()

	err := s.Produce(cctx, 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWatermarkInterleaved(t *testing.T) {
	s := New[int]("wm", 4)
	ctx := context.Background()

	go func() {
		require.NoError(t, s.Produce(ctx, 1))
		require.NoError(t, s.ProduceWatermark(ctx, Watermark{At: MinTimestamp.Add(time.Second)}))
		require.NoError(t, s.Produce(ctx, 2))
		s.Close(nil)
	}()

	it, err := s.Consume(ctx)
	require.NoError(t, err)
	require.True(t, it.IsValue())

	it, err = s.Consume(ctx)
	require.NoError(t, err)
	require.True(t, it.IsWatermark())

	it, err = s.Consume(ctx)
	require.NoError(t, err)
	require.True(t, it.IsValue())
	require.Equal(t, 2, it.Value())
}
