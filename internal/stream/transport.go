// Package stream owns the second phase of the request protocol: attaching
// to the backend's server-push stream, decoding incoming fragments and
// appending them to a sink.
package stream

import "context"

// Callbacks receive the transport's three named signals. They are invoked
// from the transport's read loop, one at a time, in delivery order.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnError   func(err error)
}

// Conn is one live server-push connection. Close is idempotent.
type Conn interface {
	Close() error
}

// Transport opens a server-push connection to a stream URL. Implementations:
// SSE (default) and WebSocket.
type Transport interface {
	Open(ctx context.Context, url string, cb Callbacks) (Conn, error)
}
