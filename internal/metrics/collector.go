// Package metrics counts the client's core events (submissions, stream
// frames, decode fallbacks) without pulling in a metrics dependency. Each
// run folds its snapshot into the history store on exit; the status command
// renders the accumulated totals.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Collector is the process-wide collector used when none is injected.
var Collector = New()

// Counters aggregates the client's counters. All methods are safe for
// concurrent use.
type Counters struct {
	startTime time.Time

	submissions    atomic.Int64
	sessionsOpened atomic.Int64
	sessionsClosed atomic.Int64
	frames         atomic.Int64
	parseFailures  atomic.Int64
	decodeFallback atomic.Int64
}

func New() *Counters {
	return &Counters{startTime: time.Now()}
}

func (c *Counters) SubmissionSent() { c.submissions.Add(1) }
func (c *Counters) SessionOpened()  { c.sessionsOpened.Add(1) }
func (c *Counters) SessionClosed()  { c.sessionsClosed.Add(1) }
func (c *Counters) FrameReceived()  { c.frames.Add(1) }
func (c *Counters) ParseFailure()   { c.parseFailures.Add(1) }
func (c *Counters) DecodeFallback() { c.decodeFallback.Add(1) }

// Uptime returns how long the collector has been running.
func (c *Counters) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Submissions    int64
	SessionsOpened int64
	SessionsClosed int64
	Frames         int64
	ParseFailures  int64
	DecodeFallback int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Submissions:    c.submissions.Load(),
		SessionsOpened: c.sessionsOpened.Load(),
		SessionsClosed: c.sessionsClosed.Load(),
		Frames:         c.frames.Load(),
		ParseFailures:  c.parseFailures.Load(),
		DecodeFallback: c.decodeFallback.Load(),
	}
}

// Counter names as persisted by the history store.
const (
	KeySubmissions    = "submissions"
	KeySessionsOpened = "sessions_opened"
	KeySessionsClosed = "sessions_closed"
	KeyFrames         = "frames"
	KeyParseFailures  = "parse_failures"
	KeyDecodeFallback = "decode_fallbacks"
)

// Counts returns the snapshot keyed by counter name, for persistence.
func (s Snapshot) Counts() map[string]int64 {
	return map[string]int64{
		KeySubmissions:    s.Submissions,
		KeySessionsOpened: s.SessionsOpened,
		KeySessionsClosed: s.SessionsClosed,
		KeyFrames:         s.Frames,
		KeyParseFailures:  s.ParseFailures,
		KeyDecodeFallback: s.DecodeFallback,
	}
}

// SnapshotFromCounts rebuilds a snapshot from persisted counter values.
// Unknown names are ignored, missing ones read as zero.
func SnapshotFromCounts(counts map[string]int64) Snapshot {
	return Snapshot{
		Submissions:    counts[KeySubmissions],
		SessionsOpened: counts[KeySessionsOpened],
		SessionsClosed: counts[KeySessionsClosed],
		Frames:         counts[KeyFrames],
		ParseFailures:  counts[KeyParseFailures],
		DecodeFallback: counts[KeyDecodeFallback],
	}
}

// String renders the snapshot as aligned key/value lines.
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "submissions:      %d\n", s.Submissions)
	fmt.Fprintf(&b, "sessions opened:  %d\n", s.SessionsOpened)
	fmt.Fprintf(&b, "sessions closed:  %d\n", s.SessionsClosed)
	fmt.Fprintf(&b, "frames received:  %d\n", s.Frames)
	fmt.Fprintf(&b, "parse failures:   %d\n", s.ParseFailures)
	fmt.Fprintf(&b, "decode fallbacks: %d\n", s.DecodeFallback)
	return b.String()
}
