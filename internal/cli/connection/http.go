package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/infra/tlsroots"
	"github.com/yndnr/sheetsync-go/internal/server/httpserver/handler"
)

const (
	headerAPIToken  = "X-API-Token"
	headerRequestID = "X-Request-ID"
	userAgent       = "sheetsync-cli/1.0"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the domain sentinel for Code, so callers can test a reply
// with errors.Is(err, domain.ErrSyncStateMismatch).
func (e *APIError) Unwrap() error {
	if de, ok := domain.Lookup(e.Code); ok {
		return de
	}
	return nil
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTLSConfig sets the TLS config used for https servers.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *HTTPClient) {
		c.client = tlsroots.HTTPClient(cfg, c.client.Timeout)
	}
}

// NewHTTPClient creates a new HTTP client. A server without scheme gets
// http://.
func NewHTTPClient(server, token string, opts ...ClientOption) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, query), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

func (c *HTTPClient) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set(headerAPIToken, c.token)
	}
	req.Header.Set("User-Agent", userAgent)
}

// ParseResponse decodes the response envelope and unmarshals its data field
// into target. It always closes the body.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"request_id"`
		Data      json.RawMessage `json:"data"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get(headerRequestID)}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			if env.RequestID != "" {
				apiErr.RequestID = env.RequestID
			}
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}

func target(workbook, sheet string) url.Values {
	return url.Values{"workbook": {workbook}, "sheet": {sheet}}
}

// Changes fetches rows modified after since. since 0 asks for a full fetch.
func (c *HTTPClient) Changes(ctx context.Context, workbook, sheet string, since int64) (*service.ChangesResult, error) {
	q := target(workbook, sheet)
	if since != 0 {
		q.Set("last_sync", strconv.FormatInt(since, 10))
	}
	resp, err := c.Get(ctx, "/api/data", q)
	if err != nil {
		return nil, err
	}
	var res service.ChangesResult
	if err := ParseResponse(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Update submits versioned cell updates.
func (c *HTTPClient) Update(ctx context.Context, workbook, sheet string, updates []domain.Update) (*handler.UpdateResponse, error) {
	resp, err := c.Post(ctx, "/api/update", target(workbook, sheet), handler.UpdateRequest{Updates: updates})
	if err != nil {
		return nil, err
	}
	var res handler.UpdateResponse
	if err := ParseResponse(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Push appends records as new rows.
func (c *HTTPClient) Push(ctx context.Context, workbook, sheet string, records []domain.Record) (*service.AppendResult, error) {
	resp, err := c.Post(ctx, "/api/push", target(workbook, sheet), handler.PushRequest{Entries: records})
	if err != nil {
		return nil, err
	}
	var res service.AppendResult
	if err := ParseResponse(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AddColumn inserts a named column into the sheet's metadata block.
func (c *HTTPClient) AddColumn(ctx context.Context, workbook, sheet string, col handler.ColumnRequest) (*service.ColumnResult, error) {
	resp, err := c.Post(ctx, "/api/columns", target(workbook, sheet), col)
	if err != nil {
		return nil, err
	}
	var res service.ColumnResult
	if err := ParseResponse(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ClearCache drops every cached window and column count on the server.
func (c *HTTPClient) ClearCache(ctx context.Context) error {
	resp, err := c.Post(ctx, "/api/cache/clear", nil, nil)
	if err != nil {
		return err
	}
	return ParseResponse(resp, nil)
}

// Health calls GET /health.
func (c *HTTPClient) Health(ctx context.Context) (*handler.HealthResponse, error) {
	resp, err := c.Get(ctx, "/health", nil)
	if err != nil {
		return nil, err
	}
	var res handler.HealthResponse
	if err := ParseResponse(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
