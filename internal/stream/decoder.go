package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Decoder extracts displayable text from one parsed stream event. Decode is
// total: unknown shapes degrade to a wrapped structural dump, never an error.
type Decoder struct {
	logger *slog.Logger
}

func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Decode walks the fallback chain in order, first match wins:
// error, text, parts, content, message, bare string, structural dump.
func (d *Decoder) Decode(event any) string {
	if m, ok := event.(map[string]any); ok {
		if errVal, ok := m["error"]; ok {
			return "Error: " + errorMessage(errVal)
		}
		if v, ok := m["text"]; ok {
			return display(v)
		}
		if v, ok := m["parts"]; ok {
			return decodeParts(v)
		}
		if v, ok := m["content"]; ok {
			return display(v)
		}
		if v, ok := m["message"]; ok {
			return display(v)
		}
	}
	if s, ok := event.(string); ok {
		return s
	}

	d.logger.Debug("unrecognized stream event shape", "event", fmt.Sprintf("%v", event))
	return "[Data: " + dump(event) + "]"
}

// decodeParts concatenates part fragments in order with no separator. A part
// contributes its text field, or its content field when type is "text";
// anything else contributes nothing.
func decodeParts(v any) string {
	parts, ok := v.([]any)
	if !ok {
		return ""
	}
	var out string
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"]; ok {
			out += display(text)
			continue
		}
		if t, _ := part["type"].(string); t == "text" {
			if content, ok := part["content"]; ok {
				out += display(content)
			}
		}
	}
	return out
}

// errorMessage prefers the error value's message field, else dumps the
// whole value.
func errorMessage(errVal any) string {
	if m, ok := errVal.(map[string]any); ok {
		if msg, ok := m["message"]; ok {
			return display(msg)
		}
	}
	return dump(errVal)
}

// display renders a field emitted "verbatim": strings pass through, any
// other shape falls back to its structural dump.
func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return dump(v)
}

func dump(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
