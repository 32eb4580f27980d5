package api

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rickgao/treasury-basis/internal/ratelimit"
)

// Client provides access to the Client Portal gateway REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Bucket
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration

	now func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new gateway client. baseURL includes the /v1/api prefix.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		limiter:      ratelimit.New(ratelimit.DefaultPerSecond, ratelimit.DefaultPerSecond),
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter shares a request bucket with other gateway users.
func WithLimiter(b *ratelimit.Bucket) ClientOption {
	return func(c *Client) {
		if b != nil {
			c.limiter = b
		}
	}
}

// WithInsecureTLS skips certificate verification. The gateway serves a
// self-signed certificate on localhost.
func WithInsecureTLS() ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}
}

// WithClock overrides the clock used for years-to-maturity conversion.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// BaseURL returns the configured REST base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
