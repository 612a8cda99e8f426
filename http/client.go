package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds outbound client settings.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// APIKey is appended to every request as the "key" query parameter.
	APIKey string

	// User agent for HTTP requests
	UserAgent string

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Connection pool configuration
	Transport TransportConfig

	// Observer, if set, is told about every completed round trip.
	Observer Observer
}

// Observer receives per-request outcomes. Status is 0 when no response arrived.
type Observer interface {
	ObserveRequest(host string, status int, elapsed time.Duration)
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	ForceAttemptHTTP2   bool
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		UserAgent:   "ytinsight/1.0",
		RateLimiter: DefaultRateLimiterConfig(),
		Transport:   DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// Client is the HTTP client handed to the Data API service. It never retries;
// a failed request surfaces to the caller as-is.
type Client struct {
	base        *http.Client
	config      *Config
	rateLimiter *RateLimiter
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	pool := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.Transport.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
	}

	c := &Client{
		config:      cfg,
		rateLimiter: NewRateLimiter(cfg.RateLimiter),
	}
	c.base = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &transport{next: pool, client: c},
	}
	return c
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client { return c.base }

// Close releases idle connections.
func (c *Client) Close() error {
	c.base.CloseIdleConnections()
	return nil
}

// transport applies rate limiting and request decoration.
type transport struct {
	next   http.RoundTripper
	client *Client
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	cfg := t.client.config
	urlStr := req.URL.String()

	if err := t.client.rateLimiter.Wait(req.Context(), urlStr); err != nil {
		return nil, err
	}

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	if cfg.APIKey != "" {
		q := req.URL.Query()
		if q.Get("key") == "" {
			q.Set("key", cfg.APIKey)
			req.URL.RawQuery = q.Encode()
		}
	}
	if req.Header.Get("User-Agent") == "" && cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)
	host := req.URL.Hostname()

	if err != nil {
		log.Debug().Str("component", "http").Str("host", host).Err(err).Msg("request failed")
		t.observe(host, 0, elapsed)
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusForbidden:
		backoff := t.client.rateLimiter.RecordRateLimitError(urlStr, parseRetryAfter(resp.Header))
		log.Warn().Str("component", "http").Str("host", host).
			Int("status", resp.StatusCode).Dur("backoff", backoff).
			Msg("upstream rate limited, slowing down")
	default:
		if resp.StatusCode < 400 {
			t.client.rateLimiter.RecordSuccess(urlStr)
		}
	}

	log.Debug().Str("component", "http").Str("host", host).Str("path", req.URL.Path).
		Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("request")
	t.observe(host, resp.StatusCode, elapsed)
	return resp, nil
}

func (t *transport) observe(host string, status int, elapsed time.Duration) {
	if o := t.client.config.Observer; o != nil {
		o.ObserveRequest(host, status, elapsed)
	}
}

// parseRetryAfter extracts the Retry-After header value, or 0 if absent.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}
	return 0
}
