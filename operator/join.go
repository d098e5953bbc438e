package operator

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
	"github.com/flowmesh/flowmesh/watermark"
	"github.com/flowmesh/flowmesh/window"
)

type joinSide int

const (
	sideLeft joinSide = iota
	sideRight
)

func (s joinSide) name() string {
	if s == sideLeft {
		return "left"
	}
	return "right"
}

type joinMsg[L, R any] struct {
	side        joinSide
	left        L
	right       R
	isWatermark bool
	wm          stream.Watermark
	isEnd       bool
	err         error
}

func forwardLeft[L, R any](ctx context.Context, s *stream.Stream[L], ch chan<- joinMsg[L, R]) {
	for {
		it, err := s.Consume(ctx)
		var msg joinMsg[L, R]
		switch {
		case err != nil:
			msg = joinMsg[L, R]{side: sideLeft, isEnd: true, err: err}
		case it.IsEnd():
			msg = joinMsg[L, R]{side: sideLeft, isEnd: true, err: it.Err()}
		case it.IsWatermark():
			msg = joinMsg[L, R]{side: sideLeft, isWatermark: true, wm: it.Watermark()}
		default:
			msg = joinMsg[L, R]{side: sideLeft, left: it.Value()}
		}
		select {
		case ch <- msg:
		case <-ctx.Done():
			return
		}
		if msg.isEnd {
			return
		}
	}
}

func forwardRight[L, R any](ctx context.Context, s *stream.Stream[R], ch chan<- joinMsg[L, R]) {
	for {
		it, err := s.Consume(ctx)
		var msg joinMsg[L, R]
		switch {
		case err != nil:
			msg = joinMsg[L, R]{side: sideRight, isEnd: true, err: err}
		case it.IsEnd():
			msg = joinMsg[L, R]{side: sideRight, isEnd: true, err: it.Err()}
		case it.IsWatermark():
			msg = joinMsg[L, R]{side: sideRight, isWatermark: true, wm: it.Watermark()}
		default:
			msg = joinMsg[L, R]{side: sideRight, right: it.Value()}
		}
		select {
		case ch <- msg:
		case <-ctx.Done():
			return
		}
		if msg.isEnd {
			return
		}
	}
}

type joinItem[T any] struct {
	v       T
	matched bool
}

type joinBucket[L, R any] struct {
	w     window.Window
	left  []joinItem[L]
	right []joinItem[R]
}

// globalWindow is the implicit single bucket used by the whole-stream join
// variant (spec §4.5): its End is +infinity, so the shared finalize routine
// below never closes it until both inputs reach end-of-stream.
var globalWindow = window.Window{Start: stream.MinTimestamp, End: stream.MaxTimestamp}

// RunJoin drives a single Join node to completion, matching left and right
// items sharing a key within the same window (or, with spec.WindowAssigner
// nil, across the whole stream) and emitting Combine results as matches
// occur. Unmatched items are resolved at window finalization according to
// JoinType (spec §4.5).
func RunJoin[K comparable, L, R, Out any](ctx context.Context, env plan.RunEnv, id string, spec JoinSpec[K, L, R, Out], left *stream.Stream[L], right *stream.Stream[R], out *stream.Stream[Out]) error {
	ch := make(chan joinMsg[L, R])
	go forwardLeft[L, R](ctx, left, ch)
	go forwardRight[L, R](ctx, right, ch)

	buckets := make(map[aggKey[K]]*joinBucket[L, R])
	tracker := watermark.NewTracker("left", "right")

	finalize := func(upTo stream.Watermark, force bool) error {
		type entry struct {
			k aggKey[K]
			b *joinBucket[L, R]
		}
		var ready []entry
		for k, b := range buckets {
			if force || !b.w.End.Add(spec.AllowedLateness).After(upTo.At) {
				ready = append(ready, entry{k, b})
			}
		}
		sort.Slice(ready, func(i, j int) bool {
			if !ready[i].b.w.End.Equal(ready[j].b.w.End) {
				return ready[i].b.w.End.Before(ready[j].b.w.End)
			}
			return fmt.Sprint(ready[i].k.key) < fmt.Sprint(ready[j].k.key)
		})
		for _, e := range ready {
			if spec.JoinType.emitsLeftOnly() {
				for _, li := range e.b.left {
					if li.matched {
						continue
					}
					if spec.LeftOnly == nil {
						continue
					}
					if err := out.Produce(ctx, spec.LeftOnly(li.v)); err != nil {
						return err
					}
				}
			}
			if spec.JoinType.emitsRightOnly() {
				for _, ri := range e.b.right {
					if ri.matched {
						continue
					}
					if spec.RightOnly == nil {
						continue
					}
					if err := out.Produce(ctx, spec.RightOnly(ri.v)); err != nil {
						return err
					}
				}
			}
			delete(buckets, e.k)
		}
		return nil
	}

	windowsFor := func(assigned bool, ts stream.Timestamp) []window.Window {
		if !assigned {
			return []window.Window{globalWindow}
		}
		return spec.WindowAssigner.AssignWindows(ts)
	}

	bucketFor := func(k K, w window.Window) *joinBucket[L, R] {
		bk := aggKey[K]{key: k, w: w}
		b, ok := buckets[bk]
		if !ok {
			b = &joinBucket[L, R]{w: w}
			buckets[bk] = b
		}
		return b
	}

	leftDone, rightDone := false, false
	for !leftDone || !rightDone {
		select {
		case msg := <-ch:
			switch {
			case msg.isEnd:
				if msg.side == sideLeft {
					leftDone = true
				} else {
					rightDone = true
				}
				if msg.err != nil {
					return msg.err
				}
			case msg.isWatermark:
				tracker.Update(msg.side.name(), msg.wm)
				merged := tracker.Merged()
				// Forcing on AllAtEndOfStream (rather than relying solely on
				// the per-bucket AllowedLateness comparison) guarantees every
				// bucket finalizes at true end-of-stream even when a
				// window's End sits so close to stream.MaxTimestamp that
				// End.Add(AllowedLateness) cannot be pushed past it.
				if err := finalize(merged, tracker.AllAtEndOfStream()); err != nil {
					return err
				}
				if err := out.ProduceWatermark(ctx, merged); err != nil {
					return err
				}
			case msg.side == sideLeft:
				l := msg.left
				k := spec.KeyLeft(l)
				var ts stream.Timestamp
				if spec.WindowAssigner != nil {
					ts = spec.EventTimeLeft(l)
				}
				for _, w := range windowsFor(spec.WindowAssigner != nil, ts) {
					if spec.WindowAssigner != nil && !w.End.Add(spec.AllowedLateness).After(tracker.Merged().At) {
						env.Logger().Debug("join %s: dropping late left item for closed window %s", id, w)
						continue
					}
					b := bucketFor(k, w)
					matched := false
					for i := range b.right {
						if err := out.Produce(ctx, spec.Combine(l, b.right[i].v)); err != nil {
							return err
						}
						b.right[i].matched = true
						matched = true
					}
					b.left = append(b.left, joinItem[L]{v: l, matched: matched})
				}
			default:
				r := msg.right
				k := spec.KeyRight(r)
				var ts stream.Timestamp
				if spec.WindowAssigner != nil {
					ts = spec.EventTimeRight(r)
				}
				for _, w := range windowsFor(spec.WindowAssigner != nil, ts) {
					if spec.WindowAssigner != nil && !w.End.Add(spec.AllowedLateness).After(tracker.Merged().At) {
						env.Logger().Debug("join %s: dropping late right item for closed window %s", id, w)
						continue
					}
					b := bucketFor(k, w)
					matched := false
					for i := range b.left {
						if err := out.Produce(ctx, spec.Combine(b.left[i].v, r)); err != nil {
							return err
						}
						b.left[i].matched = true
						matched = true
					}
					b.right = append(b.right, joinItem[R]{v: r, matched: matched})
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return finalize(stream.Watermark{At: stream.MaxTimestamp}, true)
}
