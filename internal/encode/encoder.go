// Package encode turns user-selected files into transport-safe attachments
// and assembles submission payloads from them.
package encode

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"

	"courier/internal/domain"
)

const defaultMimeType = "application/octet-stream"

// Encoder converts a single file into a base64 attachment.
type Encoder struct {
	logger *slog.Logger
}

type EncoderConfig struct {
	Logger *slog.Logger
}

func NewEncoder(cfg EncoderConfig) *Encoder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Encoder{logger: cfg.Logger}
}

// Encode reads the file's full binary content and returns it as a base64
// attachment. The encoding is lossless: decoding the Bytes field reproduces
// the original content exactly.
func (e *Encoder) Encode(ctx context.Context, f domain.File) (domain.Attachment, error) {
	rc, err := f.Open()
	if err != nil {
		return domain.Attachment{}, &domain.ReadError{Name: f.Name(), Err: err}
	}
	defer rc.Close()

	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, &domain.ReadError{Name: f.Name(), Err: err}
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Attachment{}, &domain.ReadError{Name: f.Name(), Err: err}
	}

	mime := f.ContentType()
	if mime == "" {
		mime = defaultMimeType
	}

	e.logger.Debug("encoded attachment", "name", f.Name(), "size", len(data), "mime_type", mime)

	return domain.Attachment{
		Name:     f.Name(),
		MimeType: mime,
		Bytes:    stripDataURI(base64.StdEncoding.EncodeToString(data)),
	}, nil
}

// stripDataURI drops a "data:<mime>;base64," prefix so only the encoded
// payload body remains. Plain base64 passes through unchanged.
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if _, rest, ok := strings.Cut(s, ","); ok {
		return rest
	}
	return s
}
