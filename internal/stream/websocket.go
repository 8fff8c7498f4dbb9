package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsCloseGrace = time.Second

// WebSocket carries stream frames over a websocket for backends fronted by
// a ws gateway. Each text message is one frame, same JSON shapes as SSE.
type WebSocket struct {
	dialer *websocket.Dialer
	logger *slog.Logger
}

type WebSocketConfig struct {
	Dialer *websocket.Dialer
	Logger *slog.Logger
}

func NewWebSocket(cfg WebSocketConfig) *WebSocket {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WebSocket{dialer: cfg.Dialer, logger: cfg.Logger}
}

func (t *WebSocket) Open(ctx context.Context, url string, cb Callbacks) (Conn, error) {
	wsURL := toWebSocketURL(url)

	ws, resp, err := t.dialer.DialContext(ctx, wsURL, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	conn := &wsConn{ws: ws}

	if cb.OnOpen != nil {
		cb.OnOpen()
	}

	go t.readLoop(conn, cb)

	return conn, nil
}

func (t *WebSocket) readLoop(conn *wsConn, cb Callbacks) {
	for {
		msgType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if conn.closed() {
				return // closed locally
			}
			t.logger.Debug("websocket read ended", "err", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if cb.OnMessage != nil {
			cb.OnMessage(data)
		}
	}
}

func toWebSocketURL(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}

type wsConn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	done bool
}

func (c *wsConn) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return nil
	}
	c.done = true
	c.mu.Unlock()

	deadline := time.Now().Add(wsCloseGrace)
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}
