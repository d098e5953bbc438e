// Package window implements the pure, side-effect-free window assigners
// from spec §4.4: tumbling, sliding, and session windows.
package window

import (
	"fmt"
	"time"

	"github.com/flowmesh/flowmesh/stream"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start stream.Timestamp
	End   stream.Timestamp
}

// Contains reports whether ts falls in [Start, End).
func (w Window) Contains(ts stream.Timestamp) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Overlaps reports whether w and other share any instant.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}

// Assigner computes the set of windows a timestamped item belongs to.
type Assigner interface {
	AssignWindows(ts stream.Timestamp) []Window
}

// Tumbling assigns each item to exactly one fixed-size, non-overlapping
// window: [n*size, (n+1)*size).
type Tumbling struct {
	Size time.Duration
}

// NewTumbling returns a Tumbling assigner with the given window size.
func NewTumbling(size time.Duration) Tumbling {
	return Tumbling{Size: size}
}

func (t Tumbling) AssignWindows(ts stream.Timestamp) []Window {
	start := windowStart(ts, t.Size)
	return []Window{{Start: start, End: start.Add(t.Size)}}
}

// Sliding assigns each item to every window of Size that starts on a Slide
// boundary and contains ts; an item belongs to ceil(Size/Slide) windows.
type Sliding struct {
	Size  time.Duration
	Slide time.Duration
}

// NewSliding returns a Sliding assigner.
func NewSliding(size, slide time.Duration) Sliding {
	return Sliding{Size: size, Slide: slide}
}

func (s Sliding) AssignWindows(ts stream.Timestamp) []Window {
	var windows []Window
	// windowStart(ts, Slide) is the latest slide-aligned start <= ts, so its
	// window always contains ts (End = start+Size >= start+Slide > ts-start).
	// Step backwards by Slide while the window still contains ts.
	for start := windowStart(ts, s.Slide); ; start = start.Add(-s.Slide) {
		w := Window{Start: start, End: start.Add(s.Size)}
		if !w.Contains(ts) {
			break
		}
		windows = append(windows, w)
	}
	return windows
}

// windowStart floors ts to the nearest multiple of size since MinTimestamp.
// MinTimestamp is time.Time's zero instant, which is what Truncate floors
// against; a Duration-based ts.Sub(MinTimestamp) would saturate for any ts
// more than about 292 years after it.
func windowStart(ts stream.Timestamp, size time.Duration) stream.Timestamp {
	return stream.TimestampFromTime(ts.Time().Truncate(size))
}

// Session assigns each key a dynamic window that extends while items arrive
// within Gap of each other. Session windows are per-key and stateful, so the
// Assigner interface alone is insufficient; SessionTracker holds that state.
// operator.RunAggregate and operator.RunJoin do not use SessionTracker: given
// a Session they treat each item's [ts, ts+Gap) candidate from AssignWindows
// as an ordinary window, so sessions are not merged there.
type Session struct {
	Gap time.Duration
}

// NewSession returns a Session assigner configuration.
func NewSession(gap time.Duration) Session {
	return Session{Gap: gap}
}

// AssignWindows satisfies Assigner for callers that only need the single
// candidate window anchored at ts; merging with any existing open session
// for the same key is the caller's responsibility (see SessionTracker).
func (s Session) AssignWindows(ts stream.Timestamp) []Window {
	return []Window{{Start: ts, End: ts.Add(s.Gap)}}
}

// SessionTracker merges session windows per key as items arrive, per spec
// §4.4's "per-key dynamic window that extends while items arrive within gap".
type SessionTracker struct {
	gap     time.Duration
	windows map[string]Window
}

// NewSessionTracker creates a tracker for the given gap.
func NewSessionTracker(gap time.Duration) *SessionTracker {
	return &SessionTracker{gap: gap, windows: make(map[string]Window)}
}

// Assign merges ts into key's current open session (if ts falls within gap
// of it), or opens a new session, and returns the resulting window. Once a
// window has been finalized by the caller, it must call Forget(key) so a
// late-but-still-open session starts fresh.
func (t *SessionTracker) Assign(key string, ts stream.Timestamp) Window {
	if existing, ok := t.windows[key]; ok {
		if !ts.Before(existing.Start.Add(-t.gap)) && !ts.After(existing.End.Add(t.gap)) {
			merged := Window{
				Start: stream.Min(existing.Start, ts),
				End:   stream.Max(existing.End, ts.Add(t.gap)),
			}
			t.windows[key] = merged
			return merged
		}
	}
	w := Window{Start: ts, End: ts.Add(t.gap)}
	t.windows[key] = w
	return w
}

// Forget discards the tracked session for key, typically once its window
// has been finalized and emitted.
func (t *SessionTracker) Forget(key string) {
	delete(t.windows, key)
}
