// Package fakestore is a resilient read-only client for the Fake Store
// catalog API. It classifies failures into APIError values and retries
// transient ones with exponential backoff.
package fakestore

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"shopwise/internal/httpclient"
	"shopwise/internal/metrics"
)

// maxBodySize caps response reads; catalog payloads are far smaller.
const maxBodySize = 10 * 1024 * 1024

// Config holds client configuration.
type Config struct {
	// BaseURL is the catalog service origin, without a trailing slash.
	BaseURL string

	// Timeout is the per-request client deadline.
	Timeout time.Duration

	// Retries is the total number of attempts for transient failures.
	// Non-transient failures never consume retries.
	Retries int

	// BaseDelay is the backoff before the second attempt; the delay
	// doubles for every subsequent attempt. No jitter is applied.
	BaseDelay time.Duration

	// RateLimit caps outbound requests per second; zero disables it.
	RateLimit float64

	// RateBurst is the limiter burst size (minimum 1 when limiting).
	RateBurst int
}

// DefaultConfig returns the catalog client defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   10 * time.Second,
		Retries:   3,
		BaseDelay: 1 * time.Second,
	}
}

// Client issues GET requests against the catalog API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates a catalog API client. logger and m may be nil.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	transportCfg := httpclient.DefaultConfig()
	transportCfg.Timeout = cfg.Timeout

	return &Client{
		httpClient: httpclient.New(&transportCfg),
		cfg:        cfg,
		limiter:    limiter,
		logger:     logger,
		metrics:    m,
	}
}

// NewWithHTTPClient creates a client using the given *http.Client.
// Tests use this to point at fixture servers with tight timeouts.
func NewWithHTTPClient(httpClient *http.Client, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	c := New(cfg, logger, m)
	c.httpClient = httpClient
	return c
}

// get fetches path and decodes the JSON response into out, retrying
// transient failures. endpoint is the low-cardinality metrics/log label
// (e.g. "/products/{id}"), path the concrete request path.
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	var lastErr *APIError

	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 1 {
			delay := c.cfg.BaseDelay << (attempt - 2)
			c.logger.Debug("retrying request",
				"endpoint", endpoint, "attempt", attempt, "delay", delay)
			if c.metrics != nil {
				c.metrics.APIRetries.Inc()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		body, apiErr := c.doRequest(ctx, endpoint, path)
		if apiErr == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return &APIError{Message: msgUnexpected, Err: fmt.Errorf("decoding response: %w", err)}
			}
			return nil
		}

		lastErr = apiErr
		if !apiErr.Transient() {
			return apiErr
		}
	}

	return lastErr
}

// doRequest performs a single attempt and returns the decompressed body.
func (c *Client) doRequest(ctx context.Context, endpoint, path string) ([]byte, *APIError) {
	url := c.cfg.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &APIError{Message: msgUnexpected, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	// Setting Accept-Encoding ourselves disables the transport's automatic
	// gzip handling, so both encodings are decompressed in readBody.
	req.Header.Set("Accept-Encoding", "gzip, br")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("api request", "method", http.MethodGet, "url", url, "request_id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.observe(endpoint, metrics.OutcomeError)
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		c.observe(endpoint, metrics.OutcomeError)
		return nil, &APIError{Message: msgUnexpected, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("api response", "status", resp.StatusCode, "url", url, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(endpoint, metrics.OutcomeError)
		return nil, classifyStatus(resp.StatusCode, body)
	}

	c.observe(endpoint, metrics.OutcomeSuccess)
	return body, nil
}

func (c *Client) observe(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, outcome).Inc()
	}
}

// readBody reads a response body, honoring brotli and gzip encodings and
// capping the read at maxBodySize.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch resp.Header.Get("Content-Encoding") {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}
	return body, nil
}
