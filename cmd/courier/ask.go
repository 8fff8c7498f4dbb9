package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courier/internal/agents"
	"courier/internal/client"
	"courier/internal/config"
	"courier/internal/domain"
	"courier/internal/encode"
	"courier/internal/history"
	"courier/internal/metrics"
	"courier/internal/sink"
	"courier/internal/stream"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var (
		agentID   string
		filePaths []string
		transport string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Submit a request and stream the agent's reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(askOptions{
				text:      strings.Join(args, " "),
				agentID:   agentID,
				filePaths: filePaths,
				transport: transport,
				noHistory: noHistory,
			})
		},
	}

	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "agent id (default: config defaultAgent)")
	cmd.Flags().StringArrayVarP(&filePaths, "file", "f", nil, "attach a file (repeatable)")
	cmd.Flags().StringVar(&transport, "transport", "", "stream transport: sse or websocket (default: config)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this submission")
	return cmd
}

type askOptions struct {
	text      string
	agentID   string
	filePaths []string
	transport string
	noHistory bool
}

func runAsk(opts askOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := agents.NewRegistry(logger)
	if err := registry.LoadDirectory(cfg.General.AgentsDir); err != nil {
		logger.Warn("cannot load agent manifests", "err", err)
	}

	agentID := opts.agentID
	if agentID == "" {
		agentID = cfg.General.DefaultAgent
	}
	text := opts.text
	if agent, ok := registry.Get(agentID); ok {
		if text == "" {
			text = agent.DefaultText
		}
	} else {
		logger.Warn("agent not in local catalog, submitting anyway", "agent_id", agentID)
	}

	files, err := collectFiles(opts.filePaths, cfg.Stream.MaxAttachBytes)
	if err != nil {
		return err
	}

	// Output fan-out: terminal display plus a buffer capturing the
	// transcript, plus an optional Telegram mirror.
	terminal := sink.NewTerminal(os.Stdout)
	capture := sink.NewBuffer()
	sinks := []domain.Sink{terminal, capture}

	var mirror *sink.Telegram
	if cfg.Telegram.Enabled {
		mirror, err = sink.NewTelegram(sink.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, mirror)
	}
	out := sink.NewTee(sinks...)

	var store *history.Store
	submissionID := uuid.NewString()
	if cfg.History.Enabled && !opts.noHistory {
		store, err = history.NewStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		// Counters live and die with the process; fold them into the store
		// on every exit path so the status command can report them.
		defer func(s *history.Store) {
			if err := s.AddCounters(context.Background(), metrics.Collector.Snapshot().Counts()); err != nil {
				logger.Warn("cannot persist counters", "err", err)
			}
		}(store)
	}

	builder := encode.NewBuilder(encode.BuilderConfig{Sink: out, Logger: logger})
	payload := builder.Build(ctx, text, agentID, files)

	submitter := client.New(client.Config{
		BaseURL: cfg.General.BaseURL,
		Client:  &http.Client{Timeout: time.Duration(cfg.Stream.SubmitTimeout) * time.Second},
		Logger:  logger,
	})

	metrics.Collector.SubmissionSent()
	streamID, err := submitter.Submit(ctx, payload)
	if err != nil {
		// Submission failures surface one error line; no stream is opened.
		out.AppendText("Error: " + err.Error() + "\n")
		if store != nil {
			recordHistory(ctx, store, submissionID, agentID, text, len(payload.Attachments), "", "error", capture.String())
		}
		return err
	}

	if store != nil {
		if rerr := store.RecordSubmission(ctx, history.Submission{
			ID:          submissionID,
			AgentID:     agentID,
			Text:        text,
			Attachments: len(payload.Attachments),
			StreamID:    streamID,
		}); rerr != nil {
			logger.Warn("cannot record submission", "err", rerr)
			store = nil
		}
	}

	session := stream.NewSession(stream.SessionConfig{
		BaseURL:   cfg.General.BaseURL,
		Transport: newTransport(cfg, opts.transport),
		Sink:      out,
		Logger:    logger,
	})
	defer session.Detach()

	if err := session.Attach(ctx, streamID); err != nil {
		if store != nil {
			store.Complete(ctx, submissionID, "error", capture.String())
		}
		return err
	}

	status := "done"
	select {
	case serr := <-session.Done():
		if serr != nil {
			status = "error"
		}
	case <-ctx.Done():
		session.Detach()
		status = "error"
	}
	fmt.Fprintln(os.Stdout)

	if store != nil {
		if cerr := store.Complete(context.Background(), submissionID, status, capture.String()); cerr != nil {
			logger.Warn("cannot record transcript", "err", cerr)
		}
	}
	if mirror != nil {
		if ferr := mirror.Flush(); ferr != nil {
			logger.Warn("telegram mirror failed", "err", ferr)
		}
	}
	return nil
}

// recordHistory stores a submission that never reached the stream phase.
func recordHistory(ctx context.Context, store *history.Store, id, agentID, text string, attachments int, streamID, status, transcript string) {
	if err := store.RecordSubmission(ctx, history.Submission{
		ID:          id,
		AgentID:     agentID,
		Text:        text,
		Attachments: attachments,
		StreamID:    streamID,
		Status:      status,
	}); err != nil {
		return
	}
	store.Complete(ctx, id, status, transcript)
}

// collectFiles stats every path and drops duplicates by (name, size): the
// payload builder relies on the collection holding no two such entries.
// Oversized files are skipped with a warning.
func collectFiles(paths []string, maxBytes int64) ([]domain.File, error) {
	var files []domain.File
	seen := make(map[string]bool)
	for _, path := range paths {
		f, err := encode.NewLocalFile(path)
		if err != nil {
			return nil, err
		}
		if maxBytes > 0 && f.Size() > maxBytes {
			logger.Warn("file exceeds size limit, skipping", "path", path, "size", f.Size(), "max", maxBytes)
			continue
		}
		key := fmt.Sprintf("%s\x00%d", f.Name(), f.Size())
		if seen[key] {
			logger.Debug("duplicate file ignored", "name", f.Name(), "size", f.Size())
			continue
		}
		seen[key] = true
		files = append(files, f)
	}
	return files, nil
}

func newTransport(cfg *config.Config, override string) stream.Transport {
	transport := cfg.Stream.Transport
	if override != "" {
		transport = override
	}
	if transport == "websocket" {
		return stream.NewWebSocket(stream.WebSocketConfig{Logger: logger})
	}
	return stream.NewSSE(stream.SSEConfig{Logger: logger})
}
