// Package client is the Go client for the onboarding API. It carries the
// pieces that live on the caller's side of the boundary: the typed HTTP
// client, the submission pipeline (sync user, then submit), the TTL-cached
// form-status checker, and the observable investment-data store that backs
// the report view.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrNotFound reports a 404 from the API: unknown user, or no investment
// data yet. Callers that treat "new user" differently from "API down" branch
// on it with errors.Is.
var ErrNotFound = errors.New("not found")

// User mirrors the API's user representation.
type User struct {
	ID        string    `json:"id"`
	ClerkID   string    `json:"clerkId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncUserResponse is the body of POST /sync-user.
type SyncUserResponse struct {
	Success bool  `json:"success"`
	Exists  bool  `json:"exists"`
	User    *User `json:"user"`
}

// SubmitFormResponse is the body of POST /submit-form. FormDetails is kept
// opaque — the caller usually only cares that Success is true.
type SubmitFormResponse struct {
	Success     bool            `json:"success"`
	FormDetails json.RawMessage `json:"formDetails"`
}

// Status is the body of GET /check-user-status, driving the post-sign-in
// redirect.
type Status struct {
	Exists        bool   `json:"exists"`
	HasFilledForm bool   `json:"hasFilledForm"`
	RedirectTo    string `json:"redirectTo"`
}

// Client talks to the onboarding API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the API at baseURL (no trailing slash).
func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// SyncUser ensures a user row exists for the signed-in identity.
func (c *Client) SyncUser(ctx context.Context, clerkID, email string) (*SyncUserResponse, error) {
	var resp SyncUserResponse
	err := c.post(ctx, "/sync-user", map[string]string{
		"clerkId": clerkID,
		"email":   email,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitForm runs the full submission pipeline: sync the user first, then
// send the questionnaire.
//
// A sync failure aborts everything — submitting for a user the server does
// not know would just bounce with a 404. A successful submit can still carry
// a null analysis in FormDetails; that's the server telling us the engine was
// down, not a failure.
func (c *Client) SubmitForm(ctx context.Context, clerkID, email string, form map[string]any) (*SubmitFormResponse, error) {
	if _, err := c.SyncUser(ctx, clerkID, email); err != nil {
		return nil, fmt.Errorf("syncing user: %w", err)
	}

	var resp SubmitFormResponse
	err := c.post(ctx, "/submit-form", map[string]any{
		"clerkId":  clerkID,
		"formData": form,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckFormStatus asks whether the user completed the questionnaire.
// Prefer StatusChecker, which caches the answer.
func (c *Client) CheckFormStatus(ctx context.Context, clerkID string) (bool, error) {
	var resp struct {
		HasFilledForm bool `json:"hasFilledForm"`
	}
	if err := c.get(ctx, "/check-form-status/"+clerkID, &resp); err != nil {
		return false, err
	}
	return resp.HasFilledForm, nil
}

// UserStatus resolves the post-sign-in redirect.
func (c *Client) UserStatus(ctx context.Context, clerkID string) (*Status, error) {
	var resp Status
	if err := c.get(ctx, "/check-user-status/"+clerkID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InvestmentData fetches the stored analysis document.
// Returns ErrNotFound when the user has no data yet.
func (c *Client) InvestmentData(ctx context.Context, clerkID string) (*InvestmentData, error) {
	var data InvestmentData
	if err := c.get(ctx, "/investment/"+clerkID, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("client: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation comes through here; keep it recognizable so
		// callers can treat an aborted request as "no update".
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("client: %s %s: %s", req.Method, req.URL.Path, apiErrorMessage(resp.Body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}
	return nil
}

// apiErrorMessage pulls the message out of an API error body, falling back to
// a generic string when the body isn't the expected shape.
func apiErrorMessage(body io.Reader) string {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return "request failed"
}
