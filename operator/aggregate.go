package operator

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowmesh/flowmesh/plan"
	"github.com/flowmesh/flowmesh/stream"
	"github.com/flowmesh/flowmesh/window"
)

type aggKey[K comparable] struct {
	key K
	w   window.Window
}

type aggBucket[K any, Acc any] struct {
	key K
	w   window.Window
	acc Acc
}

// RunAggregate drives a single Aggregator node to completion: consuming in,
// folding items into per-(key, window) accumulators, and producing a Result
// for each window once the merged watermark (or end-of-stream) finalizes it
// (spec §4.6). Results are emitted in ascending window-end, then key order.
func RunAggregate[In any, K comparable, Acc, Out any](ctx context.Context, env plan.RunEnv, id string, spec AggregateSpec[In, K, Acc, Out], in *stream.Stream[In], out *stream.Stream[Out]) error {
	buckets := make(map[aggKey[K]]*aggBucket[K, Acc])
	current := stream.MinWatermark

	finalize := func(upTo stream.Watermark, force bool) error {
		type entry struct {
			k aggKey[K]
			b *aggBucket[K, Acc]
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
			result := spec.Result(e.b.acc)
			if err := out.Produce(ctx, result); err != nil {
				return err
			}
			delete(buckets, e.k)
		}
		return nil
	}

	for {
		it, err := in.Consume(ctx)
		if err != nil {
			return err
		}
		if it.IsEnd() {
			if err := finalize(stream.Watermark{At: stream.MaxTimestamp}, true); err != nil {
				return err
			}
			return it.Err()
		}
		if it.IsWatermark() {
			wm := it.Watermark()
			if wm.At.After(current.At) {
				current = wm
			}
			if err := finalize(current, false); err != nil {
				return err
			}
			if err := out.ProduceWatermark(ctx, wm); err != nil {
				return err
			}
			continue
		}

		v := it.Value()
		ts := spec.EventTime(v)
		k := spec.KeyOf(v)
		windows := spec.WindowAssigner.AssignWindows(ts)
		for _, w := range windows {
			if !w.End.Add(spec.AllowedLateness).After(current.At) {
				switch spec.LatePolicy {
				case LateSideOutput:
					env.Logger().Warn("aggregate %s: late item for closed window %s", id, w)
				default:
					env.Logger().Debug("aggregate %s: dropping late item for closed window %s", id, w)
				}
				continue
			}
			bk := aggKey[K]{key: k, w: w}
			b, ok := buckets[bk]
			if !ok {
				b = &aggBucket[K, Acc]{key: k, w: w, acc: spec.CreateAccumulator()}
				buckets[bk] = b
			}
			b.acc = spec.Accumulate(b.acc, v)
		}
	}
}
