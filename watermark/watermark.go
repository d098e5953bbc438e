// Package watermark implements the watermark generators from spec §4.4 and
// the multi-input merge rule from spec §4.1: an operator's current watermark
// is the minimum of the latest watermarks seen on each of its inputs.
package watermark

import (
	"time"

	"github.com/juju/clock"

	"github.com/flowmesh/flowmesh/stream"
)

// Generator advances a watermark from observed event-times.
type Generator interface {
	// Observe records an item's event-time and returns the generator's
	// current watermark.
	Observe(ts stream.Timestamp) stream.Watermark
	// Current returns the generator's watermark without observing a new item.
	Current() stream.Watermark
}

// BoundedOutOfOrderness assumes no item arrives more than Delay behind the
// maximum event-time seen so far: watermark = max(event-times seen) - Delay,
// underflow-protected at stream.MinTimestamp.
type BoundedOutOfOrderness struct {
	delay  time.Duration
	maxSeen stream.Timestamp
}

// NewBoundedOutOfOrderness creates a generator with the given out-of-order
// bound.
func NewBoundedOutOfOrderness(delay time.Duration) *BoundedOutOfOrderness {
	return &BoundedOutOfOrderness{delay: delay, maxSeen: stream.MinTimestamp}
}

func (g *BoundedOutOfOrderness) Observe(ts stream.Timestamp) stream.Watermark {
	g.maxSeen = stream.Max(g.maxSeen, ts)
	return g.Current()
}

func (g *BoundedOutOfOrderness) Current() stream.Watermark {
	candidate := g.maxSeen.Add(-g.delay)
	if candidate.Before(stream.MinTimestamp) {
		candidate = stream.MinTimestamp
	}
	return stream.Watermark{At: candidate}
}

// Periodic has BoundedOutOfOrderness semantics but only advances the emitted
// watermark at fixed wall-clock intervals, driven by an injected clock.Clock
// rather than a bare time.Ticker so tests can use a fake clock (the same
// pattern juju-juju's workers use instead of sleeping in tests).
type Periodic struct {
	inner    *BoundedOutOfOrderness
	interval time.Duration
	clk      clock.Clock

	lastEmit  stream.Watermark
	lastEmitAt time.Time
}

// NewPeriodic creates a Periodic generator. If clk is nil, clock.WallClock
// is used.
func NewPeriodic(interval time.Duration, delay time.Duration, clk clock.Clock) *Periodic {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Periodic{
		inner:      NewBoundedOutOfOrderness(delay),
		interval:   interval,
		clk:        clk,
		lastEmit:   stream.MinWatermark,
		lastEmitAt: clk.Now(),
	}
}

// Observe records an item's event-time. The returned watermark only
// advances once Interval has elapsed on the wall clock since the previous
// advance; between ticks it returns the last emitted value.
func (g *Periodic) Observe(ts stream.Timestamp) stream.Watermark {
	g.inner.Observe(ts)
	now := g.clk.Now()
	if now.Sub(g.lastEmitAt) >= g.interval {
		g.lastEmit = g.inner.Current()
		g.lastEmitAt = now
	}
	return g.lastEmit
}

func (g *Periodic) Current() stream.Watermark {
	return g.lastEmit
}

// Tracker merges the watermarks observed on multiple named inputs into a
// single current watermark: the minimum across all inputs (spec §4.1).
// Inputs not yet observed are treated as still at stream.MinTimestamp, so
// the merged watermark cannot advance past an input that has never reported.
type Tracker struct {
	latest map[string]stream.Watermark
	order  []string
}

// NewTracker creates a Tracker for the given input names, all starting at
// the minimum watermark.
func NewTracker(inputs ...string) *Tracker {
	t := &Tracker{latest: make(map[string]stream.Watermark, len(inputs))}
	for _, name := range inputs {
		t.latest[name] = stream.MinWatermark
		t.order = append(t.order, name)
	}
	return t
}

// Update records a newly observed watermark on the named input. It ignores
// regressions: the per-input watermark only advances, never goes backwards.
func (t *Tracker) Update(input string, w stream.Watermark) {
	if cur, ok := t.latest[input]; ok && w.At.Before(cur.At) {
		return
	}
	t.latest[input] = w
}

// Merged returns the minimum watermark across all inputs.
func (t *Tracker) Merged() stream.Watermark {
	merged := stream.Watermark{At: stream.MaxTimestamp}
	for _, name := range t.order {
		w := t.latest[name]
		if w.At.Before(merged.At) {
			merged = w
		}
	}
	if len(t.order) == 0 {
		return stream.MinWatermark
	}
	return merged
}

// AllAtEndOfStream reports whether every tracked input has reached the
// end-of-stream watermark (+infinity), the condition under which a
// whole-stream operator finalizes (spec §4.5/§4.6).
func (t *Tracker) AllAtEndOfStream() bool {
	for _, name := range t.order {
		if t.latest[name].At.Before(stream.MaxTimestamp) {
			return false
		}
	}
	return true
}
