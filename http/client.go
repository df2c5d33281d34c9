// Package http provides the outbound HTTP client used for YouTube Data API
// calls, with per-host rate limiting and a per-host circuit breaker.
package http

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ctctracker/internal/logging"
)

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// RequestsPerSecond paces requests per host, 0 disables pacing
	RequestsPerSecond float64

	// User agent for HTTP requests
	UserAgent string

	// Circuit breaker configuration
	CircuitBreaker CircuitBreakerConfig

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections remain in the pool.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults for API access.
func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		UserAgent:         "ctctracker/1.0",
		CircuitBreaker:    DefaultCircuitBreakerConfig(),
		Transport: TransportConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Transport is an http.RoundTripper that paces and guards requests per host.
// Non-2xx responses are still returned to the caller so API error bodies can
// be decoded; 429 and 5xx count against the host.
type Transport struct {
	Base           http.RoundTripper
	UserAgent      string
	RateLimiter    *RateLimiter
	CircuitBreaker *CircuitBreaker
	Logger         *zap.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()

	if err := t.CircuitBreaker.Allow(host); err != nil {
		return nil, err
	}
	if err := t.RateLimiter.Wait(req.Context(), host); err != nil {
		t.CircuitBreaker.Release(host)
		return nil, err
	}

	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		// an abandoned request says nothing about the host
		if req.Context().Err() != nil {
			t.CircuitBreaker.Release(host)
		} else {
			t.CircuitBreaker.RecordFailure(host)
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		statusErr := &StatusError{
			Host:       host,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		if statusErr.Throttled() {
			t.RateLimiter.RecordThrottle(host, statusErr.RetryAfter)
		}
		t.CircuitBreaker.RecordFailure(host)
		t.logger().Warn("request failed", zap.String("host", host), zap.Error(statusErr))
		return resp, nil
	}

	t.RateLimiter.RecordSuccess(host)
	t.CircuitBreaker.RecordSuccess(host)
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *zap.Logger {
	return logging.OrNop(t.Logger)
}

// NewClient builds an *http.Client whose transport applies rate limiting and
// circuit breaking. A nil config uses DefaultConfig.
func NewClient(cfg *Config, logger *zap.Logger) *http.Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Transport.MaxIdleConns > 0 {
		base.MaxIdleConns = cfg.Transport.MaxIdleConns
	}
	if cfg.Transport.MaxIdleConnsPerHost > 0 {
		base.MaxIdleConnsPerHost = cfg.Transport.MaxIdleConnsPerHost
	}
	if cfg.Transport.IdleConnTimeout > 0 {
		base.IdleConnTimeout = cfg.Transport.IdleConnTimeout
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &Transport{
			Base:           base,
			UserAgent:      cfg.UserAgent,
			RateLimiter:    NewRateLimiter(cfg.RequestsPerSecond),
			CircuitBreaker: NewCircuitBreaker(cfg.CircuitBreaker),
			Logger:         logger,
		},
	}
}

// parseRetryAfter parses the Retry-After header (seconds or HTTP date).
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
