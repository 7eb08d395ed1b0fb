// Package httpclient is the authenticated REST client shared by the
// quote and order fetchers: request signing, bearer-token attachment,
// retry with exponential backoff plus jitter, and classification of
// API errors for the subscription engine's retry policy.
package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/publicapi-go/internal/httpauth"
)

// Client provides access to the broker's REST API.
type Client struct {
	baseURL    string
	auth       *httpauth.Manager // nil for unauthenticated requests
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a REST client against baseURL. auth may be nil to
// make unauthenticated requests, which will fail for most endpoints.
func NewClient(baseURL string, auth *httpauth.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}
