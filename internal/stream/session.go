package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"courier/internal/domain"
	"courier/internal/metrics"
)

// State is the session lifecycle: Idle -> Connecting -> Streaming ->
// (Closed | Errored).
type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

const (
	connectionErrorNotice = "\n[Connection error]\n"
	decodePanicMarker     = "[Error processing response data]"
)

// Session owns at most one live stream connection. Attach always closes any
// prior connection before opening the new one, so only one connection exists
// at any time; frames arriving on a replaced or closed handle are dropped.
type Session struct {
	baseURL   string
	transport Transport
	decoder   *Decoder
	sink      domain.Sink
	logger    *slog.Logger
	counters  *metrics.Counters

	mu    sync.Mutex
	conn  Conn
	state State
	gen   uint64
	done  chan error
}

type SessionConfig struct {
	BaseURL   string
	Transport Transport
	Decoder   *Decoder
	Sink      domain.Sink
	Logger    *slog.Logger
	Counters  *metrics.Counters
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewDecoder(cfg.Logger)
	}
	if cfg.Transport == nil {
		cfg.Transport = NewSSE(SSEConfig{Logger: cfg.Logger})
	}
	if cfg.Counters == nil {
		cfg.Counters = metrics.Collector
	}
	return &Session{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		transport: cfg.Transport,
		decoder:   cfg.Decoder,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		counters:  cfg.Counters,
		state:     Idle,
	}
}

// StreamURL derives the connection URL for a stream identifier.
func (s *Session) StreamURL(streamID string) string {
	return fmt.Sprintf("%s/request-handler/stream/%s", s.baseURL, streamID)
}

// Attach closes any prior connection, then opens a stream connection for the
// given identifier. The returned error covers connection setup only; events
// arrive asynchronously until a final frame, a transport error, a replacement
// Attach, or Detach.
func (s *Session) Attach(ctx context.Context, streamID string) error {
	s.Detach()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = Connecting
	s.done = make(chan error, 1)
	done := s.done
	s.mu.Unlock()

	s.sink.SetVisible(true)

	conn, err := s.transport.Open(ctx, s.StreamURL(streamID), Callbacks{
		OnOpen:    func() { s.onOpen(gen) },
		OnMessage: func(data []byte) { s.onMessage(gen, data) },
		OnError:   func(err error) { s.onError(gen, err) },
	})
	if err != nil {
		cerr := &domain.ConnectionError{Err: err}
		s.mu.Lock()
		if gen == s.gen {
			s.state = Errored
		}
		s.mu.Unlock()
		done <- cerr
		return cerr
	}

	s.mu.Lock()
	if gen != s.gen {
		// Replaced while connecting; discard the late handle.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	s.counters.SessionOpened()
	s.logger.Info("stream attached", "stream_id", streamID)
	return nil
}

// Done reports the terminal outcome of the current attachment: nil after a
// final frame or Detach, a *domain.ConnectionError after a transport failure.
func (s *Session) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan error)
		close(closed)
		return closed
	}
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Detach closes the connection if one is open and clears the handle.
// Calling it when already idle is a no-op.
func (s *Session) Detach() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.gen++ // anything still in flight is now stale
	live := s.state == Connecting || s.state == Streaming
	if live {
		s.state = Closed
	}
	done := s.done
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
		s.counters.SessionClosed()
	}
	if live && done != nil {
		done <- nil
	}
}

func (s *Session) onOpen(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.state = Streaming
	s.logger.Debug("stream open")
}

func (s *Session) onMessage(gen uint64, data []byte) {
	s.mu.Lock()
	if gen != s.gen || s.state == Closed || s.state == Errored {
		s.mu.Unlock()
		return
	}
	s.state = Streaming
	s.mu.Unlock()

	s.counters.FrameReceived()

	var event any
	if err := json.Unmarshal(data, &event); err != nil {
		// Malformed frame: show it, keep the session open.
		s.counters.ParseFailure()
		s.logger.Warn("unparsable stream frame", "frame", string(data))
		s.sink.AppendText("[Raw: " + string(data) + "]")
		return
	}

	if isFinal(event) {
		// The connection is closed and the handle cleared before this
		// returns; trailing content in a final frame is not decoded.
		s.closeFinal(gen)
		return
	}

	s.sink.AppendText(s.decodeSafe(event))
}

func (s *Session) onError(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.state == Closed || s.state == Errored {
		s.mu.Unlock()
		return
	}
	s.state = Errored
	s.gen++
	conn := s.conn
	s.conn = nil
	done := s.done
	s.mu.Unlock()

	s.logger.Warn("stream connection error", "err", err)
	s.sink.AppendText(connectionErrorNotice)

	if conn != nil {
		conn.Close()
		s.counters.SessionClosed()
	}
	if done != nil {
		done <- &domain.ConnectionError{Err: err}
	}
}

// closeFinal performs the Streaming -> Closed transition for a final frame.
func (s *Session) closeFinal(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state = Closed
	s.gen++
	conn := s.conn
	s.conn = nil
	done := s.done
	s.mu.Unlock()

	s.logger.Info("stream finished")
	if conn != nil {
		conn.Close()
		s.counters.SessionClosed()
	}
	if done != nil {
		done <- nil
	}
}

// decodeSafe shields the event loop from decoder panics on pathological
// frames.
func (s *Session) decodeSafe(event any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while decoding stream event", "panic", r)
			s.counters.DecodeFallback()
			text = decodePanicMarker
		}
	}()
	return s.decoder.Decode(event)
}

// isFinal reports whether a parsed event carries a truthy final flag.
// Truthiness follows the backend's loose conventions: false, 0, "", and
// null are falsy; everything else is truthy.
func isFinal(event any) bool {
	m, ok := event.(map[string]any)
	if !ok {
		return false
	}
	v, ok := m["final"]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}
