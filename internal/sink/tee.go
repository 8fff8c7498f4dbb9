package sink

import "courier/internal/domain"

// Tee fans every append and visibility change out to all member sinks in
// order.
type Tee struct {
	sinks []domain.Sink
}

func NewTee(sinks ...domain.Sink) *Tee {
	return &Tee{sinks: sinks}
}

func (t *Tee) AppendText(text string) {
	for _, s := range t.sinks {
		s.AppendText(text)
	}
}

func (t *Tee) SetVisible(visible bool) {
	for _, s := range t.sinks {
		s.SetVisible(visible)
	}
}
