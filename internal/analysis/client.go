// Package analysis is the HTTP client for the external portfolio-analysis
// engine.
//
// The engine is a black box to us: we POST a normalized questionnaire and get
// back a structured recommendation document. We never interpret the document —
// it's stored and served as-is — so the client returns json.RawMessage rather
// than a typed struct.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/normalize"
)

// DefaultURL is the production analysis endpoint. Override with the
// ANALYSIS_API_URL environment variable (see cmd/server).
const DefaultURL = "https://new-fastapi-production.up.railway.app/analyze-portfolio"

// Client calls the portfolio-analysis engine.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the engine at url.
//
// The 30s timeout is a hard cap per analysis call. The submission path treats
// any failure — timeout included — as "no analysis this time" and carries on,
// so a slow engine can delay a submission but never wedge it.
func New(url string, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Analyze sends the normalized submission to the engine and returns its
// recommendation document.
//
// All failure modes — transport error, timeout, non-2xx status, unreadable
// body — come back as the same apperror.ErrUpstream. The caller doesn't
// branch on why the engine failed, only that it did.
func (c *Client) Analyze(ctx context.Context, sub normalize.Submission) (json.RawMessage, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		// A Submission always marshals; this would be a programming error.
		return nil, fmt.Errorf("analysis: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("analysis: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("analysis engine", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.Upstream("analysis engine",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Upstream("analysis engine",
			fmt.Errorf("reading response: %w", err))
	}

	// Reject bodies that aren't valid JSON — a truncated or HTML error page
	// must not end up cached as the user's recommendation.
	if !json.Valid(doc) {
		return nil, apperror.Upstream("analysis engine",
			fmt.Errorf("response is not valid JSON"))
	}

	c.logger.Debug("analysis engine responded",
		slog.Int("bytes", len(doc)),
	)

	return json.RawMessage(doc), nil
}
