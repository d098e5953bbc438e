// Package websocket adapts a websocket connection into a flow.Source,
// for pipelines whose data originates from a live push feed rather than
// a store.
package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nhooyr.io/websocket"

	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/stream"
)

// Frame is one newline-delimited JSON document read off a connection,
// stamped with the time it was received so a watermark generator has
// something to key off without parsing the payload itself.
type Frame struct {
	ReceivedAt time.Time
	Payload    json.RawMessage
}

// Options configures a Source.
type Options struct {
	URL      string
	Capacity int // stream buffer capacity, defaults to stream.DefaultBufferCapacity
}

// Source dials URL and emits one Frame per newline-delimited JSON document
// found in each text or binary message received, closing its stream when
// the connection closes or the run context is cancelled.
type Source struct {
	opts Options
}

// NewSource returns a flow.Source that dials opts.URL when run.
func NewSource(opts Options) flow.Source[Frame] {
	return &Source{opts: opts}
}

// Run satisfies flow.Source.
func (s *Source) Run(ctx context.Context) (*stream.Stream[Frame], error) {
	conn, _, err := websocket.Dial(ctx, s.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("connector/websocket: dial %s: %w", s.opts.URL, err)
	}

	capacity := s.opts.Capacity
	if capacity <= 0 {
		capacity = stream.DefaultBufferCapacity
	}
	out := stream.New[Frame]("websocket", capacity)

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "done")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					out.Close(nil)
				} else {
					out.Close(fmt.Errorf("connector/websocket: read: %w", err))
				}
				return
			}
			for _, line := range bytes.Split(data, []byte("\n")) {
				line = bytes.TrimSpace(line)
				if len(line) == 0 {
					continue
				}
				frame := Frame{ReceivedAt: time.Now(), Payload: json.RawMessage(line)}
				if perr := out.Produce(ctx, frame); perr != nil {
					out.Close(perr)
					return
				}
			}
		}
	}()

	return out, nil
}
