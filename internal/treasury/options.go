package treasury

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures the CME and fiscal clients.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
