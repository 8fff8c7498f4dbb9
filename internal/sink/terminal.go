// Package sink provides append-only text destinations for decoded stream
// fragments: terminal output, an in-memory buffer, a fan-out, and a
// Telegram transcript mirror.
package sink

import (
	"io"
	"os"
	"sync"
)

// Terminal writes fragments verbatim to a writer (stdout by default), with
// no added separators so fragments reassemble exactly.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	visible bool
}

func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{out: out, visible: true}
}

func (t *Terminal) AppendText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.visible {
		return
	}
	io.WriteString(t.out, text)
}

func (t *Terminal) SetVisible(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = visible
}
