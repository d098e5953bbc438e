// Package stream implements the typed, lazy, single-consumer stream
// abstraction (spec §4.1): bounded FIFO delivery with backpressure,
// cancellation, and in-band watermark markers.
package stream

import (
	"context"
	"fmt"

	"github.com/juju/errors"
)

// DefaultBufferCapacity is the buffer size used when a Stream is created
// without an explicit capacity.
const DefaultBufferCapacity = 64

// itemKind tags the union carried by Item.
type itemKind int

const (
	kindValue itemKind = iota
	kindWatermark
	kindEnd
)

// Item is the tagged union flowing through a Stream's internal channel: a
// value, an out-of-band watermark marker, or the end-of-stream signal.
type Item[T any] struct {
	kind      itemKind
	value     T
	watermark Watermark
	err       error
}

// ValueItem wraps a value with no event-time stamp.
func ValueItem[T any](v T) Item[T] { return Item[T]{kind: kindValue, value: v} }

// WatermarkItem wraps an out-of-band watermark marker.
func WatermarkItem[T any](w Watermark) Item[T] { return Item[T]{kind: kindWatermark, watermark: w} }

// IsValue reports whether the item carries a value.
func (it Item[T]) IsValue() bool { return it.kind == kindValue }

// IsWatermark reports whether the item carries a watermark marker.
func (it Item[T]) IsWatermark() bool { return it.kind == kindWatermark }

// IsEnd reports whether the item signals end-of-stream.
func (it Item[T]) IsEnd() bool { return it.kind == kindEnd }

// Value returns the carried value; only meaningful when IsValue is true.
func (it Item[T]) Value() T { return it.value }

// Watermark returns the carried watermark; only meaningful when IsWatermark.
func (it Item[T]) Watermark() Watermark { return it.watermark }

// Err returns the error attached to an end-of-stream item, if any.
func (it Item[T]) Err() error { return it.err }

// ErrClosed is a sentinel error for a closed stream. Consume does not return
// it: once a stream has drained past its end-of-stream marker, every further
// Consume call returns another end-of-stream item.
var ErrClosed = errors.New("stream: closed")

// Stream is a typed, single-producer, single-consumer, cancellable sequence.
// Ownership: exactly one goroutine calls Produce, exactly one calls Consume.
// Fan-out requires an explicit broadcast transform (spec Open Questions).
type Stream[T any] struct {
	name string
	ch   chan Item[T]

	closeErr error
	closed   chan struct{}
}

// New creates a Stream with the given name and bounded buffer capacity.
// A capacity <= 0 is replaced by DefaultBufferCapacity; zero-capacity edges
// are rejected earlier, by flow.Connect and flow.Graph.Build, before any
// node runs (spec §8 "Zero-size buffer is rejected at plan build").
func New[T any](name string, capacity int) *Stream[T] {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Stream[T]{
		name:   name,
		ch:     make(chan Item[T], capacity),
		closed: make(chan struct{}),
	}
}

// Name returns the stream's identity name.
func (s *Stream[T]) Name() string { return s.name }

// Produce appends a value to the stream, blocking when the buffer is full
// (backpressure). It returns ctx.Err() if ctx is done before the value is
// accepted.
func (s *Stream[T]) Produce(ctx context.Context, v T) error {
	select {
	case s.ch <- ValueItem(v):
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// ProduceWatermark emits an out-of-band watermark marker. Callers must
// ensure watermarks are non-decreasing; the stream itself does not enforce
// this (the watermark subsystem does, see package watermark).
func (s *Stream[T]) ProduceWatermark(ctx context.Context, w Watermark) error {
	select {
	case s.ch <- WatermarkItem[T](w):
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// Consume yields the next item: a value, a watermark, or end-of-stream.
// It is cancellable via ctx.
func (s *Stream[T]) Consume(ctx context.Context) (Item[T], error) {
	select {
	case it, ok := <-s.ch:
		if !ok {
			return Item[T]{kind: kindEnd, err: s.closeErr}, nil
		}
		return it, nil
	case <-ctx.Done():
		var zero Item[T]
		return zero, errors.Trace(ctx.Err())
	}
}

// Close terminates the stream. If err is non-nil, the next Consume call
// after the buffer drains surfaces it as the end-of-stream error. Close is
// idempotent; only the first call's error is retained.
func (s *Stream[T]) Close(err error) {
	select {
	case <-s.closed:
		return
	default:
		close(s.closed)
		s.closeErr = err
		close(s.ch)
	}
}

// Done reports a channel closed once Close has been called, useful for
// consumer-side select loops that want to notice closure without draining.
func (s *Stream[T]) Done() <-chan struct{} { return s.closed }

// CloseErr blocks until Close has been called and returns the error it was
// given. Unlike Consume, it never reads from the item channel, so a
// producer can safely wait on its own stream's closure without racing the
// stream's single consumer.
func (s *Stream[T]) CloseErr() error {
	<-s.closed
	return s.closeErr
}

func (it Item[T]) String() string {
	switch it.kind {
	case kindValue:
		return fmt.Sprintf("value(%v)", it.value)
	case kindWatermark:
		return fmt.Sprintf("watermark(%s)", it.watermark.At)
	default:
		return fmt.Sprintf("end(%v)", it.err)
	}
}
