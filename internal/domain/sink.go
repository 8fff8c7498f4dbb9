package domain

// Sink is an append-only text destination for decoded fragments and error
// annotations (terminal, buffer, Telegram mirror).
type Sink interface {
	AppendText(s string)
	SetVisible(visible bool)
}
