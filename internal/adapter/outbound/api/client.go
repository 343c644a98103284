// Package api is the REST client for the SOC backend.
//
// Every request attaches the stored bearer token; a 401 response both fails
// the call with ErrUnauthenticated and clears the token store, so the next
// gate check redirects to login instead of retrying a dead credential.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyberblue/soc-console/internal/domain/report"
	"github.com/cyberblue/soc-console/internal/domain/token"
	"github.com/cyberblue/soc-console/internal/domain/tool"
	"github.com/cyberblue/soc-console/internal/port/outbound"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response body is kept for
// diagnostics.
const maxErrorBody = 512

// RequestRecorder records API request outcomes. Implemented by the metrics
// package; a nil recorder disables recording.
type RequestRecorder interface {
	RecordAPIRequest(endpoint, outcome string)
}

// Client talks to the SOC backend. It implements outbound.DataSource and
// outbound.Introspector.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tokens     token.Store
	logger     *slog.Logger
	metrics    RequestRecorder
}

// Interface conformance.
var (
	_ outbound.DataSource   = (*Client)(nil)
	_ outbound.Introspector = (*Client)(nil)
)

// NewClient creates a backend client reading defaults from SOC_CONSOLE_*
// environment variables. Options override the defaults.
func NewClient(tokens token.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: os.Getenv("SOC_CONSOLE_API_URL"),
		timeout: DefaultTimeout,
		tokens:  tokens,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// Me calls GET /auth/me with the stored token.
// Returns ErrUnauthenticated (and clears the token store) on a 401.
func (c *Client) Me(ctx context.Context) (*outbound.Profile, error) {
	var profile outbound.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Tools calls GET /tools.
func (c *Client) Tools(ctx context.Context) ([]tool.Tool, error) {
	var tools []tool.Tool
	if err := c.do(ctx, http.MethodGet, "/tools", nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// ToolAction calls POST /actions/{toolId}/{action}.
func (c *Client) ToolAction(ctx context.Context, toolID string, action tool.Action) error {
	if !action.IsValid() {
		return fmt.Errorf("invalid tool action %q", action)
	}
	path := "/actions/" + url.PathEscape(toolID) + "/" + string(action)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Metrics calls GET /api/metrics.
func (c *Client) Metrics(ctx context.Context) (*report.SystemMetrics, error) {
	var m report.SystemMetrics
	if err := c.do(ctx, http.MethodGet, "/api/metrics", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// AuditLogs calls GET /api/audit-logs.
func (c *Client) AuditLogs(ctx context.Context, q report.AuditQuery) ([]report.AuditLog, error) {
	path := "/api/audit-logs"
	params := url.Values{}
	if q.Action != "" {
		params.Set("action", q.Action)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var logs []report.AuditLog
	if err := c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Incidents calls GET /api/incidents.
func (c *Client) Incidents(ctx context.Context) ([]report.Incident, error) {
	var incidents []report.Incident
	if err := c.do(ctx, http.MethodGet, "/api/incidents", nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// anomaliesResponse is the wire envelope of the anomalies listing.
type anomaliesResponse struct {
	Anomalies []report.Anomaly `json:"anomalies"`
}

// Anomalies calls GET /api/ai/anomalies?acknowledged=&limit=.
func (c *Client) Anomalies(ctx context.Context, q report.AnomalyQuery) ([]report.Anomaly, error) {
	params := url.Values{}
	params.Set("acknowledged", strconv.FormatBool(q.Acknowledged))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp anomaliesResponse
	if err := c.do(ctx, http.MethodGet, "/api/ai/anomalies?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Anomalies == nil {
		return []report.Anomaly{}, nil
	}
	return resp.Anomalies, nil
}

// acknowledgeRequest is the wire body of the acknowledge call.
type acknowledgeRequest struct {
	AnomalyIDs []int `json:"anomaly_ids"`
}

// AcknowledgeAnomalies calls POST /api/ai/anomalies/acknowledge.
func (c *Client) AcknowledgeAnomalies(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/ai/anomalies/acknowledge", acknowledgeRequest{AnomalyIDs: ids}, nil)
}

// do executes one authenticated request. body is JSON-encoded when non-nil;
// out is JSON-decoded when non-nil and the response is 2xx.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	tok, err := c.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	endpoint := requestEndpoint(path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, "unreachable")
		if isConnectionError(err) {
			return &ServerUnreachableError{Cause: err}
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Dead credential: erase it so the gate redirects to login.
		if clearErr := c.tokens.Clear(ctx); clearErr != nil {
			c.logger.Error("failed to clear rejected token", "error", clearErr)
		}
		c.record(endpoint, "unauthenticated")
		return &StatusError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(endpoint, "error")
		return &StatusError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	c.record(endpoint, "ok")
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// record reports one request outcome to the metrics recorder, if any.
func (c *Client) record(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(endpoint, outcome)
	}
}

// requestEndpoint reduces a request path to a low-cardinality metrics label.
func requestEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasPrefix(path, "/actions/") {
		return "/actions"
	}
	return path
}

// readErrorBody reads a truncated error body for diagnostics.
func readErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// isConnectionError reports whether the error indicates the server could not
// be contacted at all, as opposed to an HTTP-level failure.
func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isConnectionError(urlErr.Err) || urlErr.Timeout()
	}
	return false
}
