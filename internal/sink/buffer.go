package sink

import (
	"strings"
	"sync"
)

// Buffer accumulates appended text in memory. Used to capture transcripts
// for the history store and as a test double.
type Buffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) AppendText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(text)
}

func (b *Buffer) SetVisible(bool) {}

// String returns everything appended so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
