package watermark

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/stream"
)

func TestBoundedOutOfOrdernessUnderflowProtected(t *testing.T) {
	g := NewBoundedOutOfOrderness(time.Hour)

	w := g.Observe(stream.MinTimestamp.Add(time.Minute))
	require.Equal(t, stream.MinTimestamp, w.At)
}

func TestBoundedOutOfOrdernessAdvancesWithMax(t *testing.T) {
	g := NewBoundedOutOfOrderness(5 * time.Second)

	g.Observe(stream.MinTimestamp.Add(10 * time.Second))
	w := g.Observe(stream.MinTimestamp.Add(3 * time.Second))
	require.Equal(t, stream.MinTimestamp.Add(5*time.Second), w.At)
}

func TestPeriodicOnlyAdvancesOnTick(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	g := NewPeriodic(time.Second, 0, clk)

	w1 := g.Observe(stream.MinTimestamp.Add(time.Minute))
	w2 := g.Observe(stream.MinTimestamp.Add(2 * time.Minute))
	require.Equal(t, w1, w2, "watermark should not advance before the interval elapses")

	clk.Advance(time.Second)
	w3 := g.Observe(stream.MinTimestamp.Add(3 * time.Minute))
	require.True(t, w3.At.After(w2.At))
}

func TestTrackerMergesAsMinimum(t *testing.T) {
	tr := NewTracker("left", "right")
	tr.Update("left", stream.Watermark{At: stream.MinTimestamp.Add(10 * time.Second)})
	tr.Update("right", stream.Watermark{At: stream.MinTimestamp.Add(3 * time.Second)})

	require.Equal(t, stream.MinTimestamp.Add(3*time.Second), tr.Merged().At)
}

func TestTrackerIgnoresEmptyInputSet(t *testing.T) {
	tr := NewTracker()
	require.Equal(t, stream.MinWatermark, tr.Merged())
}

func TestTrackerAllAtEndOfStream(t *testing.T) {
	tr := NewTracker("a", "b")
	require.False(t, tr.AllAtEndOfStream())

	tr.Update("a", stream.EndOfStreamWatermark)
	require.False(t, tr.AllAtEndOfStream())

	tr.Update("b", stream.EndOfStreamWatermark)
	require.True(t, tr.AllAtEndOfStream())
}
