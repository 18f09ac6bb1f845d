package crm

import (
	"net/http"
	"strings"
	"time"
)

// Defaults for the card listing endpoint.
const (
	DefaultPageSize = 100
	DefaultMaxPages = 500
	defaultTimeout  = 30 * time.Second
)

// fallbackMessage is used when an error response carries no key/text pair.
const fallbackMessage = "failed to fetch cards"

// Client talks to the CRM card listing endpoint with a static bearer token.
// Requests are sequential and never retried.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	maxPages   int
	httpClient *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithPageSize overrides the requested page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxPages caps how many pages a single fetch may request. Zero disables
// the cap.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxPages = n
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client for baseURL (e.g. "https://api.helena.run/crm/v1").
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    strings.TrimSpace(token),
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// authorization returns the Authorization header value. Tokens that already
// carry a scheme ("Bearer abc") are sent unchanged.
func (c *Client) authorization() string {
	if c.token == "" {
		return ""
	}
	if strings.Contains(c.token, " ") {
		return c.token
	}
	return "Bearer " + c.token
}

// APIError is returned when the listing endpoint answers with a non-200
// status or a body without an items array.
type APIError struct {
	StatusCode int
	Key        string
	Text       string
}

func (e *APIError) Error() string {
	if e.Key != "" && e.Text != "" {
		return e.Key + ": " + e.Text
	}
	return fallbackMessage
}
