// Package backend is the REST client for the analytics backend: accounts,
// uploaded datasets, failure predictions and maintenance insights.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/machintel/machintel-service/internal/domain"
	"github.com/machintel/machintel-service/internal/observability"
)

// GuestSessionHeader carries the guest session id on backend requests.
const GuestSessionHeader = "X-Guest-Session"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 64 << 10

// Client talks to the analytics backend over HTTP. Requests are never
// retried; failures are returned to the caller as they are.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a backend client rooted at baseURL (e.g.
// "http://localhost:8000/api").
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Body   []byte
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend API error: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend API error: status %d: %s", e.Status, e.Body)
}

// StatusCode returns the HTTP status of err when it is an *APIError.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}

// request describes one backend call.
type request struct {
	op          string
	method      string
	path        string
	creds       domain.Credentials
	body        io.Reader
	contentType string
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, creds domain.Credentials, in, out any) error {
	req := request{op: op, method: method, path: path, creds: creds}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		req.body = bytes.NewReader(payload)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	switch {
	case r.creds.AccessToken != "":
		req.Header.Set("Authorization", "Bearer "+r.creds.AccessToken)
	case r.creds.GuestSessionID != "":
		req.Header.Set(GuestSessionHeader, r.creds.GuestSessionID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.BackendDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(r.op, "transport_error").Inc()
		return fmt.Errorf("%s request: %w", r.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome := "client_error"
		if resp.StatusCode >= 500 {
			outcome = "server_error"
		}
		c.metrics.BackendRequests.WithLabelValues(r.op, outcome).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("backend request failed", "operation", r.op, "status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode, Body: body, Detail: errorDetail(body)}
	}
	c.metrics.BackendRequests.WithLabelValues(r.op, "success").Inc()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

// errorDetail extracts a readable message from a JSON error body. The
// backend reports either {"detail": "..."}, {"error": "..."} or per-field
// lists such as {"email": ["Enter a valid email address."]}.
func errorDetail(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			parts = append(parts, k+": "+v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, k+": "+s)
				}
			}
		}
	}
	return strings.Join(parts, "; ")
}
