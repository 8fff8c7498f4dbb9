package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"courier/internal/domain"
	"courier/internal/metrics"
)

// fakeConn records close calls.
type fakeConn struct {
	transport *fakeTransport
	id        int
	mu        sync.Mutex
	closes    int
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.transport.record("close", c.id)
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// fakeTransport hands out fake connections and lets tests push the three
// transport signals by hand.
type fakeTransport struct {
	mu      sync.Mutex
	conns   []*fakeConn
	cb      Callbacks
	events  []string
	openErr error
	lastURL string
}

func (t *fakeTransport) Open(ctx context.Context, url string, cb Callbacks) (Conn, error) {
	t.mu.Lock()
	t.lastURL = url
	if t.openErr != nil {
		err := t.openErr
		t.mu.Unlock()
		return nil, err
	}
	conn := &fakeConn{transport: t, id: len(t.conns)}
	t.conns = append(t.conns, conn)
	t.cb = cb
	t.mu.Unlock()

	t.record("open", conn.id)
	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	return conn, nil
}

func (t *fakeTransport) record(kind string, id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, kind+":"+string(rune('0'+id)))
}

func (t *fakeTransport) emit(frame string) {
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()
	cb.OnMessage([]byte(frame))
}

func (t *fakeTransport) fail(err error) {
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()
	cb.OnError(err)
}

// testSink is an in-memory append-only sink.
type testSink struct {
	mu      sync.Mutex
	buf     strings.Builder
	visible bool
}

func (s *testSink) AppendText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.WriteString(text)
}

func (s *testSink) SetVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = v
}

func (s *testSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func newTestSession(t *testing.T) (*Session, *fakeTransport, *testSink) {
	t.Helper()
	transport := &fakeTransport{}
	sink := &testSink{}
	session := NewSession(SessionConfig{
		BaseURL:   "http://backend.local",
		Transport: transport,
		Sink:      sink,
		Counters:  metrics.New(),
	})
	return session, transport, sink
}

func waitDone(t *testing.T, session *Session) error {
	t.Helper()
	select {
	case err := <-session.Done():
		return err
	case <-time.After(time.Second):
		t.Fatal("session never reached a terminal state")
		return nil
	}
}

func TestSession_StreamURL(t *testing.T) {
	session, transport, _ := newTestSession(t)
	if err := session.Attach(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	if transport.lastURL != "http://backend.local/request-handler/stream/abc" {
		t.Errorf("url = %q", transport.lastURL)
	}
}

// Scenario A: fragments assemble in order, the final frame closes the
// connection, and frames on the stale handle never reach the sink.
func TestSession_FragmentsThenFinal(t *testing.T) {
	session, transport, sink := newTestSession(t)
	if err := session.Attach(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}

	transport.emit(`{"text":"Hel"}`)
	transport.emit(`{"text":"lo"}`)
	transport.emit(`{"final":true}`)

	if err := waitDone(t, session); err != nil {
		t.Errorf("done err = %v", err)
	}
	if got := sink.String(); got != "Hello" {
		t.Errorf("sink = %q, want %q", got, "Hello")
	}
	if session.State() != Closed {
		t.Errorf("state = %v, want closed", session.State())
	}
	if transport.conns[0].closeCount() != 1 {
		t.Errorf("close count = %d, want 1", transport.conns[0].closeCount())
	}

	// Stale handle: late frames must not append.
	transport.emit(`{"text":"ghost"}`)
	if got := sink.String(); got != "Hello" {
		t.Errorf("stale frame leaked into sink: %q", got)
	}
}

// A final frame carrying content is not decoded; the session closes without
// appending the trailing fragment.
func TestSession_FinalFrameSkipsContent(t *testing.T) {
	session, transport, sink := newTestSession(t)
	session.Attach(context.Background(), "abc")

	transport.emit(`{"text":"done"}`)
	transport.emit(`{"final":true,"text":"trailing"}`)

	waitDone(t, session)
	if got := sink.String(); got != "done" {
		t.Errorf("sink = %q, want %q", got, "done")
	}
}

// Scenario C: an unparsable frame is shown wrapped in a raw marker and the
// session stays open for subsequent valid frames.
func TestSession_UnparsableFrameNonFatal(t *testing.T) {
	session, transport, sink := newTestSession(t)
	session.Attach(context.Background(), "abc")

	transport.emit(`not-json`)
	transport.emit(`{"text":" ok"}`)

	if got := sink.String(); got != "[Raw: not-json] ok" {
		t.Errorf("sink = %q", got)
	}
	if session.State() != Streaming {
		t.Errorf("state = %v, want streaming", session.State())
	}
}

// Session singularity: attaching a new stream closes the old connection
// exactly once, before the new one opens.
func TestSession_ReplacementClosesPrior(t *testing.T) {
	session, transport, sink := newTestSession(t)
	session.Attach(context.Background(), "first")
	session.Attach(context.Background(), "second")

	if len(transport.conns) != 2 {
		t.Fatalf("conns = %d, want 2", len(transport.conns))
	}
	if transport.conns[0].closeCount() != 1 {
		t.Errorf("old conn closed %d times, want 1", transport.conns[0].closeCount())
	}
	want := []string{"open:0", "close:0", "open:1"}
	for i, ev := range want {
		if transport.events[i] != ev {
			t.Fatalf("event order = %v, want %v", transport.events, want)
		}
	}

	// Frames from the replaced handle are dropped.
	transport.emit(`{"text":"live"}`)
	if got := sink.String(); got != "live" {
		t.Errorf("sink = %q", got)
	}
}

func TestSession_ConnectionError(t *testing.T) {
	session, transport, sink := newTestSession(t)
	session.Attach(context.Background(), "abc")

	transport.emit(`{"text":"partial"}`)
	transport.fail(errors.New("network down"))

	err := waitDone(t, session)
	var ce *domain.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("done err = %v, want *domain.ConnectionError", err)
	}
	if !strings.Contains(sink.String(), "[Connection error]") {
		t.Errorf("sink = %q, missing connection error notice", sink.String())
	}
	if session.State() != Errored {
		t.Errorf("state = %v, want errored", session.State())
	}
	if transport.conns[0].closeCount() != 1 {
		t.Errorf("close count = %d", transport.conns[0].closeCount())
	}

	// Terminal: a late error signal must not append twice.
	transport.fail(errors.New("again"))
	if n := strings.Count(sink.String(), "[Connection error]"); n != 1 {
		t.Errorf("notices = %d, want 1", n)
	}
}

func TestSession_AttachDialFailure(t *testing.T) {
	session, transport, _ := newTestSession(t)
	transport.openErr = errors.New("refused")

	err := session.Attach(context.Background(), "abc")
	var ce *domain.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *domain.ConnectionError", err)
	}
	if session.State() != Errored {
		t.Errorf("state = %v", session.State())
	}
}

func TestSession_DetachIdempotent(t *testing.T) {
	session, transport, _ := newTestSession(t)

	session.Detach() // idle: no-op
	if session.State() != Idle {
		t.Errorf("state = %v, want idle", session.State())
	}

	session.Attach(context.Background(), "abc")
	session.Detach()
	session.Detach()

	if transport.conns[0].closeCount() != 1 {
		t.Errorf("close count = %d, want 1", transport.conns[0].closeCount())
	}
	if session.State() != Closed {
		t.Errorf("state = %v, want closed", session.State())
	}
}

func TestIsFinal(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"final":true}`, true},
		{`{"final":false}`, false},
		{`{"final":1}`, true},
		{`{"final":0}`, false},
		{`{"final":"yes"}`, true},
		{`{"final":""}`, false},
		{`{"final":null}`, false},
		{`{"final":{}}`, true},
		{`{"text":"x"}`, false},
		{`"final"`, false},
	}
	for _, tt := range tests {
		if got := isFinal(parse(t, tt.raw)); got != tt.want {
			t.Errorf("isFinal(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
