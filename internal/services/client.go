package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/earnx/internal/shared"
)

// DefaultUserAgent is sent when no client identifier is configured.
const DefaultUserAgent = "earnx/0.1.0"

const (
	loginPath    = "/v1/auth/login"
	refreshPath  = "/v1/auth/refresh"
	earningsPath = "/v1/earnings/admin"
)

// APIClient sends JSON requests to one environment's API.
//
// Every request carries the configured User-Agent; some reverse proxies in front of the
// API reject requests without one.
type APIClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *log.Logger
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewAPIClient creates a client for baseURL. A nil httpClient gets a client with a 30 second timeout.
func NewAPIClient(baseURL, userAgent string, httpClient *http.Client, logger *log.Logger) *APIClient {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewEnvironmentClient creates a client for env using the configured base URL, identifier and timeout.
func NewEnvironmentClient(env Environment, cfg *shared.Config, logger *log.Logger) *APIClient {
	var httpClient *http.Client
	if cfg.Client.TimeoutSeconds > 0 {
		httpClient = &http.Client{Timeout: time.Duration(cfg.Client.TimeoutSeconds) * time.Second}
	}
	return NewAPIClient(env.BaseURL(cfg.Environments), cfg.Client.UserAgent, httpClient, logger)
}

// BaseURL returns the base URL requests are sent to.
func (c *APIClient) BaseURL() string { return c.baseURL }

// Do sends a request and reads the whole response.
//
// body is JSON encoded when non-nil. tok, when non-nil, authorizes the request as a bearer credential.
// Transport failures are returned as [*NetworkError]; non-2xx statuses are not errors here.
func (c *APIClient) Do(ctx context.Context, method, path string, body any, tok *oauth2.Token) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("request complete", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// bearerToken wraps a raw credential so [oauth2.Token.SetAuthHeader] can apply it.
func bearerToken(raw string) *oauth2.Token {
	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
}
