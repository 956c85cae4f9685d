package youtube

import (
	"net/http"
	"time"

	"google.golang.org/api/googleapi/transport"
)

// TransportConfig configures the connection pool used for API calls.
type TransportConfig struct {
	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int
	// MaxConnsPerHost is the maximum concurrent connections per host.
	// Default: 20
	MaxConnsPerHost int
	// IdleConnTimeout is how long an idle connection stays open.
	// Default: 90 seconds
	IdleConnTimeout time.Duration
}

// DefaultTransportConfig returns the pool settings used when none are given.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
}

// newHTTPClient returns a pooled client that authenticates every request
// with apiKey. Per-attempt deadlines come from the request context.
func newHTTPClient(apiKey string, cfg TransportConfig) *http.Client {
	def := DefaultTransportConfig()
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConns = cfg.MaxIdleConnsPerHost * 2
	base.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	base.MaxConnsPerHost = cfg.MaxConnsPerHost
	base.IdleConnTimeout = cfg.IdleConnTimeout
	base.ForceAttemptHTTP2 = true

	return &http.Client{
		Transport: &transport.APIKey{Key: apiKey, Transport: base},
	}
}
