package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courier/internal/metrics"
)

// sseServer streams the given frames as text/event-stream and then closes.
func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("accept = %q", accept)
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer is not a flusher")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}))
}

func TestSSE_DeliversFramesInOrder(t *testing.T) {
	srv := sseServer(t, []string{`{"text":"a"}`, `{"text":"b"}`, `{"final":true}`})
	defer srv.Close()

	transport := NewSSE(SSEConfig{})
	var got []string
	opened := make(chan struct{})
	msgs := make(chan string, 8)

	conn, err := transport.Open(context.Background(), srv.URL, Callbacks{
		OnOpen:    func() { close(opened) },
		OnMessage: func(data []byte) { msgs <- string(data) },
		OnError:   func(err error) { msgs <- "err" },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("open signal never fired")
	}

	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case m := <-msgs:
			if m == "err" {
				t.Fatalf("transport error after %d frames", len(got))
			}
			got = append(got, m)
		case <-deadline:
			t.Fatalf("timed out with frames %v", got)
		}
	}

	want := []string{`{"text":"a"}`, `{"text":"b"}`, `{"final":true}`}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSSE_MultiLineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive comment\n")
		fmt.Fprint(w, "data: line1\n")
		fmt.Fprint(w, "data: line2\n\n")
	}))
	defer srv.Close()

	transport := NewSSE(SSEConfig{})
	msgs := make(chan string, 1)
	conn, err := transport.Open(context.Background(), srv.URL, Callbacks{
		OnMessage: func(data []byte) { msgs <- string(data) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	select {
	case m := <-msgs:
		if m != "line1\nline2" {
			t.Errorf("frame = %q", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
}

// CRLF-framed streams dispatch frames too; the \r must not hide the blank
// delimiter line or leak into the payload.
func TestSSE_CRLFFraming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"text\":\"a\"}\r\n\r\n")
	}))
	defer srv.Close()

	transport := NewSSE(SSEConfig{})
	msgs := make(chan string, 1)
	conn, err := transport.Open(context.Background(), srv.URL, Callbacks{
		OnMessage: func(data []byte) { msgs <- string(data) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	select {
	case m := <-msgs:
		if m != `{"text":"a"}` {
			t.Errorf("frame = %q", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame received from CRLF stream")
	}
}

func TestSSE_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	transport := NewSSE(SSEConfig{})
	if _, err := transport.Open(context.Background(), srv.URL, Callbacks{}); err == nil {
		t.Fatal("expected error for 404 stream endpoint")
	}
}

func TestSSE_ErrorSignalOnServerDrop(t *testing.T) {
	srv := sseServer(t, []string{`{"text":"partial"}`}) // server closes without final
	defer srv.Close()

	transport := NewSSE(SSEConfig{})
	errs := make(chan error, 1)
	conn, err := transport.Open(context.Background(), srv.URL, Callbacks{
		OnMessage: func([]byte) {},
		OnError:   func(err error) { errs <- err },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("error signal never fired after server drop")
	}
}

// End-to-end over a real SSE server: the session assembles fragments and
// closes on the final frame.
func TestSession_OverSSE(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/request-handler/stream/abc", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range []string{`{"text":"Hel"}`, `{"text":"lo"}`, `{"final":true}`} {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := &testSink{}
	session := NewSession(SessionConfig{
		BaseURL:  srv.URL,
		Sink:     sink,
		Counters: metrics.New(),
	})
	if err := session.Attach(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	if err := waitDone(t, session); err != nil {
		t.Errorf("done err = %v", err)
	}
	if got := sink.String(); got != "Hello" {
		t.Errorf("sink = %q, want Hello", got)
	}
}
