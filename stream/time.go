package stream

import "time"

// Timestamp is an absolute event-time instant with millisecond precision.
// The core only ever compares and orders Timestamps; wall-clock time is an
// implementation detail of specific watermark generators (watermark.Periodic).
type Timestamp struct {
	t time.Time
}

// MinTimestamp is the minimum representable instant, the initial value of
// every watermark before any item has been observed.
var MinTimestamp = TimestampFromTime(time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC))

// MaxTimestamp is used internally to represent the end-of-stream watermark
// (+infinity); it is never a legal event-time for an item.
var MaxTimestamp = TimestampFromTime(time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC))

// TimestampFromTime truncates t to millisecond precision.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{t: t.Truncate(time.Millisecond)}
}

// Now returns the current wall-clock instant as a Timestamp. Prefer an
// explicit event-time source in pipeline code; Now exists for generators and
// tests that deliberately use wall-clock time (watermark.Periodic).
func Now() Timestamp { return TimestampFromTime(time.Now()) }

// Time returns the underlying time.Time.
func (ts Timestamp) Time() time.Time { return ts.t }

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts is strictly later than other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports whether ts and other denote the same instant.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// Add returns ts shifted by d.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return TimestampFromTime(ts.t.Add(d))
}

// Sub returns the duration between ts and other (ts - other).
func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return ts.t.Sub(other.t)
}

// Min returns the earlier of two timestamps.
func Min(a, b Timestamp) Timestamp {
	if a.Before(b) {
		return a
	}
	return b
}

// Max returns the later of two timestamps.
func Max(a, b Timestamp) Timestamp {
	if a.After(b) {
		return a
	}
	return b
}

func (ts Timestamp) String() string {
	return ts.t.Format(time.RFC3339Nano)
}

// Watermark asserts that no subsequent item on the stream will carry an
// event-time <= At. Watermarks are monotone non-decreasing per stream.
type Watermark struct {
	At Timestamp
}

// EndOfStreamWatermark is the final watermark (+infinity): no item with any
// event-time can follow it. Stream.Close does not produce it; a producer
// sends it with ProduceWatermark.
var EndOfStreamWatermark = Watermark{At: MaxTimestamp}

// MinWatermark is the initial watermark value of every fresh stream/operator.
var MinWatermark = Watermark{At: MinTimestamp}
