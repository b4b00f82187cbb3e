// Package httpclient provides a shared retrying HTTP client for all
// outbound provider calls. Rate-limit and server-busy responses are
// retried with exponential backoff up to a bounded attempt count.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the hard cap on total attempts per request.
	DefaultMaxAttempts = 4

	// DefaultInitialBackoff is the wait before the first retry.
	DefaultInitialBackoff = 2 * time.Second

	// DefaultMaxBackoff caps the wait between retries.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Client wraps http.Client with a fixed identity header, rate limiting
// and bounded retry on 429/503 responses.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	headers        map[string]string
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         arbor.ILogger
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the identity header sent on every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHeader adds a fixed header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithMaxAttempts sets the total attempt cap.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithBackoff sets the initial and maximum backoff durations.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a retrying HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		headers:        make(map[string]string),
		limiter:        rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get performs a GET request and returns the response body.
// Retries on 429 and 503 with exponential backoff (Retry-After honored
// when present); after attempts are exhausted a *models.FetchError
// carrying the last response context is returned.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastStatus int
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attempts = attempt
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		body, status, retryAfter, err := c.doGet(ctx, url)
		if err == nil {
			return body, nil
		}

		lastStatus = status
		lastErr = err

		// Only rate-limit and server-busy responses are retriable.
		retriable := status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable || status == 0
		if !retriable || attempt == c.maxAttempts {
			break
		}

		wait := c.backoff(attempt, retryAfter)
		if c.logger != nil {
			c.logger.Warn().
				Str("url", url).
				Int("status", status).
				Int("attempt", attempt).
				Str("wait", wait.String()).
				Msg("Retriable response, backing off")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, &models.FetchError{
		URL:        url,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Err:        lastErr,
	}
}

// GetJSON performs a GET request and decodes the JSON response body.
func (c *Client) GetJSON(ctx context.Context, url string, result interface{}) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// doGet performs a single attempt. Returns the body on success, or the
// status code, Retry-After hint and error on failure.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	// Accept-Encoding is left to the transport so gzip responses are
	// decompressed transparently.
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Body is drained for error context; large error pages are truncated.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			return nil, resp.StatusCode, retryAfter,
				fmt.Errorf("%w: status %d: %s", models.ErrRateLimited, resp.StatusCode, string(snippet))
		}
		return nil, resp.StatusCode, 0,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, 0, nil
}

// backoff computes the wait before the next attempt. An explicit
// Retry-After hint takes precedence; otherwise exponential doubling
// from the initial backoff, capped at the maximum.
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > c.maxBackoff {
			return c.maxBackoff
		}
		return retryAfter
	}

	wait := c.initialBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
	}
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	return wait
}

// parseRetryAfter parses a Retry-After header value in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
