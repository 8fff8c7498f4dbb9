// Package client performs the first phase of the request protocol: POST the
// submission payload and extract the stream identifier from the response.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courier/internal/domain"
)

const (
	submitPath         = "/request-handler/submit/"
	defaultHTTPTimeout = 120 * time.Second
)

// Client submits payloads to the request-handler backend. Single attempt,
// no retry; retry policy belongs to the caller if anywhere.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

// Submit serializes the payload, POSTs it, and returns the stream identifier
// untouched. A non-2xx status yields *domain.TransportError; a success
// response that cannot be parsed or lacks a stream_id yields
// *domain.ProtocolError.
func (c *Client) Submit(ctx context.Context, payload domain.SubmissionPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", &domain.TransportError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	var result domain.SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &domain.ProtocolError{Reason: "unparsable body", Err: err}
	}
	if result.StreamID == "" {
		return "", &domain.ProtocolError{Reason: "missing stream_id"}
	}

	c.logger.Info("submission accepted",
		"agent_id", payload.AgentID,
		"attachments", len(payload.Attachments),
		"stream_id", result.StreamID,
		"status", result.Status,
	)

	return result.StreamID, nil
}

// statusText extracts the reason phrase the server actually sent. Servers
// can emit non-canonical phrases; resp.Status carries them verbatim as
// "<code> <phrase>".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
