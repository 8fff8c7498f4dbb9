package encode

import (
	"context"
	"fmt"
	"log/slog"

	"courier/internal/domain"
)

// Builder assembles a full submission payload, encoding attachments one at
// a time in input order.
type Builder struct {
	encoder *Encoder
	sink    domain.Sink
	logger  *slog.Logger
}

type BuilderConfig struct {
	Encoder *Encoder
	Sink    domain.Sink
	Logger  *slog.Logger
}

func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Encoder == nil {
		cfg.Encoder = NewEncoder(EncoderConfig{Logger: cfg.Logger})
	}
	return &Builder{
		encoder: cfg.Encoder,
		sink:    cfg.Sink,
		logger:  cfg.Logger,
	}
}

// Build encodes every file and returns the payload. A file that fails to
// encode is reported to the sink as one error line and omitted; the build
// itself never fails. Attachment order matches input order.
func (b *Builder) Build(ctx context.Context, text, agentID string, files []domain.File) domain.SubmissionPayload {
	attachments := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		att, err := b.encoder.Encode(ctx, f)
		if err != nil {
			b.logger.Warn("skipping attachment", "name", f.Name(), "err", err)
			if b.sink != nil {
				b.sink.AppendText(fmt.Sprintf("Error: could not read file %s\n", f.Name()))
			}
			continue
		}
		attachments = append(attachments, att)
	}

	return domain.SubmissionPayload{
		Text:        text,
		AgentID:     agentID,
		Attachments: attachments,
	}
}
