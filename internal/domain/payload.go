package domain

// Attachment is the transport-safe form of one user-selected file. Bytes
// holds the base64 payload body only, never a data-URI prefix.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Bytes    string `json:"bytes"`
}

// SubmissionPayload is the body of one submit request. Built fresh per
// submission and never mutated after construction.
type SubmissionPayload struct {
	Text        string       `json:"text"`
	AgentID     string       `json:"agent_id"`
	Attachments []Attachment `json:"files"`
}

// SubmissionResult is the backend's first-phase response. A missing
// stream_id is a hard failure.
type SubmissionResult struct {
	StreamID string `json:"stream_id"`
	Status   string `json:"status,omitempty"`
}
