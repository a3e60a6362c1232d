// Package sources provides clients for academic metadata providers.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClientConfig tunes the shared provider HTTP client.
type HTTPClientConfig struct {
	// Timeout bounds each individual request attempt.
	Timeout time.Duration
	// RateLimit is the sustained request rate per second.
	RateLimit float64
	// BurstSize is the token bucket depth.
	BurstSize int
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// RetryDelay is the wait between attempts when the provider does not
	// send a Retry-After header.
	RetryDelay time.Duration
	// UserAgent identifies the service; some providers route identified
	// clients to a less restricted pool.
	UserAgent string
	// APIKey, when set, is sent in APIKeyHeader on every request.
	APIKey       string
	APIKeyHeader string
}

func (cfg HTTPClientConfig) withDefaults() HTTPClientConfig {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ResearchHub-PaperImport/1.0"
	}
	return cfg
}

// HTTPClient is a rate-limited, retrying http.Client shared by the
// provider clients. Safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     HTTPClientConfig
}

// NewHTTPClient builds a client that paces requests through a token
// bucket and retries 429s, 5xx responses, and transient network errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	cfg = cfg.withDefaults()
	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		cfg:     cfg,
	}
}

// Do executes req, waiting on the rate limiter before every attempt.
// When retries are exhausted the final response is returned rather than
// an error, so callers can map the provider's status code themselves.
// Requests with a body must set GetBody to be retryable.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" && c.cfg.APIKeyHeader != "" {
		req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt >= c.cfg.MaxRetries {
				return nil, lastErr
			}
			if err := c.backoff(req, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt >= c.cfg.MaxRetries {
			return resp, nil
		}

		delay := retryDelay(resp, c.cfg.RetryDelay)
		drainAndClose(resp.Body)
		if err := c.backoff(req, delay); err != nil {
			return nil, err
		}
	}
}

// backoff sleeps for delay (honoring context cancellation) and rewinds
// the request body for the next attempt.
func (c *HTTPClient) backoff(req *http.Request, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
	}

	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}
	req.Body = body
	return nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// retryDelay prefers the Retry-After header, in either seconds or
// HTTP-date form, over the configured fallback.
func retryDelay(resp *http.Response, fallback time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.ParseInt(header, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return fallback
	}
	if at, err := http.ParseTime(header); err == nil {
		if until := time.Until(at); until > 0 {
			return until
		}
	}
	return fallback
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
