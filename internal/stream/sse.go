package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// sseMaxFrameSize bounds one SSE frame; agent responses are text fragments,
// not bulk payloads.
const sseMaxFrameSize = 1 << 20

// SSE reads text/event-stream frames over a long-lived GET.
type SSE struct {
	client *http.Client
	logger *slog.Logger
}

type SSEConfig struct {
	Client *http.Client
	Logger *slog.Logger
}

func NewSSE(cfg SSEConfig) *SSE {
	if cfg.Client == nil {
		// No Timeout here: the stream stays open until the final frame.
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SSE{client: cfg.Client, logger: cfg.Logger}
}

func (t *SSE) Open(ctx context.Context, url string, cb Callbacks) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream endpoint returned %d", resp.StatusCode)
	}

	conn := &sseConn{cancel: cancel, body: resp.Body}

	if cb.OnOpen != nil {
		cb.OnOpen()
	}

	go t.readLoop(ctx, resp.Body, cb)

	return conn, nil
}

// readLoop scans SSE frames: "data:" lines accumulate until a blank line
// dispatches the frame. Multi-line data joins with newlines per the SSE
// format.
func (t *SSE) readLoop(ctx context.Context, body io.Reader, cb Callbacks) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), sseMaxFrameSize)

	var data []string
	for scanner.Scan() {
		// CRLF-framed streams leave a trailing \r on every scanned line.
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			if len(data) > 0 {
				frame := strings.Join(data, "\n")
				data = data[:0]
				if cb.OnMessage != nil {
					cb.OnMessage([]byte(frame))
				}
			}
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(payload, " "))
		}
		// Comment lines and other SSE fields (event:, id:, retry:) are
		// not used by the backend and are skipped.
	}

	if ctx.Err() != nil {
		return // closed locally, not a transport failure
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	t.logger.Debug("stream read loop ended", "err", err)
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

type sseConn struct {
	cancel context.CancelFunc
	body   io.Closer
	once   sync.Once
}

func (c *sseConn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.body.Close()
	})
	return nil
}
