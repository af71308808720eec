// Package client provides the HubSpot HTTP transport with credential
// injection, retries, conditional caching and shared rate limiting.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/hubspot-lists-client/pkg/cache"
	"github.com/Sternrassler/hubspot-lists-client/pkg/logging"
	"github.com/Sternrassler/hubspot-lists-client/pkg/ratelimit"
	"github.com/Sternrassler/hubspot-lists-client/pkg/version"
)

// Prometheus metrics for HubSpot transport operations.
var (
	hubspotRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_requests_total",
		Help: "Total HubSpot requests by endpoint and status",
	}, []string{"endpoint", "status"})

	hubspotRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_request_duration_seconds",
		Help:    "HubSpot request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	hubspotErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_errors_total",
		Help: "Total HubSpot errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the HubSpot transport. It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	pages       *cache.Store
	cacheScope  string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey is the HubSpot private app token, sent as a bearer credential (REQUIRED).
	APIKey string

	// Redis enables the conditional response cache and the shared rate
	// limit state. Nil disables both.
	Redis *redis.Client

	// UserAgent header (default: version.UserAgent())
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry
	MaxAttempts    int           // attempts per request, including the first
	InitialBackoff time.Duration // 0 uses the per-class default

	// Logger for transport events (default: disabled)
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration without Redis.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		UserAgent:   version.UserAgent(),
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
	}
}

// New creates a new HubSpot transport.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", cfg.Timeout)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}

	logger := logging.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "hubspot-client").Logger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cacheScope: cache.ScopeFor(cfg.APIKey),
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		pages, err := cache.NewStore(cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("create page store: %w", err)
		}
		c.pages = pages
	}

	return c, nil
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// This is the core request method that orchestrates all transport features.
//
// Retriable failures (5xx, 429) that persist after the last attempt are
// returned as the final response rather than an error, so callers always
// see the status HubSpot reported. Only network failures and cancellation
// surface as errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		hubspotRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by rate limiter")
			hubspotRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, ErrRateLimited
		}
	}

	// Step 2: Check Cache (GET only)
	cacheKey := cache.Key{
		Path:  endpoint,
		Query: req.URL.Query(),
		Scope: c.cacheScope,
	}
	useCache := c.pages != nil && req.Method == http.MethodGet

	var cachedEntry *cache.Entry
	if useCache {
		entry, err := c.pages.Lookup(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache lookup error")
		}

		// Step 3: Make Conditional Request if cache hit
		if entry.ApplyValidators(req) {
			cachedEntry = entry
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 4: Credential and content headers
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil && req.Body != http.NoBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	// Step 5: Execute HTTP Request with Retry Logic
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing HubSpot request")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, c.logger, c.retryOverride(), func(attempt int) error {
		resp = nil

		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				errClass = ErrorClassClient
				return fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		r, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = c.classifyError(nil, reqErr)
			hubspotErrorsTotal.WithLabelValues(string(errClass)).Inc()
			hubspotRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &HubSpotError{ErrorClass: errClass, Message: "request failed", Err: reqErr}
		}

		c.updateRateLimit(ctx, r.Header)

		// 304 is not an error
		if r.StatusCode == http.StatusNotModified {
			resp = r
			return nil
		}

		if r.StatusCode >= 400 {
			errClass = c.classifyError(r, nil)
			hubspotErrorsTotal.WithLabelValues(string(errClass)).Inc()
			hubspotRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", r.StatusCode).
				Str("error_class", string(errClass)).
				Msg("HubSpot request error")

			if shouldRetry(errClass) {
				// Kept in memory so the caller gets it if this was the last attempt
				data, err := bufferResponse(r)
				if err != nil {
					errClass = ErrorClassNetwork
					return &HubSpotError{StatusCode: r.StatusCode, ErrorClass: errClass, Message: "read error body", Err: err}
				}
				resp = r
				statusErr := newStatusError(r.StatusCode, errClass, r.Header, data)
				if statusErr.CorrelationID != "" {
					c.logger.Debug().
						Str("endpoint", endpoint).
						Str("correlation_id", statusErr.CorrelationID).
						Msg("HubSpot error correlation")
				}
				return statusErr
			}

			// Client errors are not retried; the caller handles the status
			resp = r
			return nil
		}

		hubspotRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()
		resp = r
		return nil
	}, func(err error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		if resp != nil && !errors.Is(retryErr, ErrContextCancelled) {
			return resp, nil
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		hubspotRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		if err := c.pages.Refresh(ctx, cacheKey, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to extend cached page")
		}

		resp.Body.Close()
		return cachedEntry.Response(req), nil
	}

	// Step 7: Update Cache on success
	if useCache && resp.StatusCode == http.StatusOK {
		entry, err := cache.FromResponse(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.Revalidatable() {
			if err := c.pages.Save(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.Remaining()).
					Msg("Cached response")
			}
		}
	}

	// Step 8: A successful mutation drops the stored pages of its resource
	if c.pages != nil && req.Method != http.MethodGet && resp.StatusCode < 300 {
		if _, err := c.pages.InvalidateUnder(ctx, c.cacheScope, path.Dir(endpoint)); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to invalidate cached pages")
		}
	}

	return resp, nil
}

// Send performs one logical request and returns the status code and the
// fully read body. It satisfies the lists.Transport contract.
func (c *Client) Send(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}

	return resp.StatusCode, data, nil
}

// updateRateLimit records the rate limit headers of a response.
func (c *Client) updateRateLimit(ctx context.Context, headers http.Header) {
	if c.rateLimiter == nil {
		return
	}
	if err := c.rateLimiter.UpdateFromHeaders(ctx, headers); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}
}

// retryOverride maps the client configuration onto the per-class retry policies.
func (c *Client) retryOverride() RetryConfig {
	return RetryConfig{
		MaxAttempts:    c.config.MaxAttempts,
		InitialBackoff: c.config.InitialBackoff,
	}
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		c.logger.Debug().Str("class", string(ErrorClassNetwork)).Msg("Error classified")
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Debug().Str("class", string(ErrorClassRateLimit)).Msg("Error classified")
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Debug().Str("class", string(ErrorClassClient)).Msg("Error classified")
		return ErrorClassClient
	case resp.StatusCode >= 500:
		c.logger.Debug().Str("class", string(ErrorClassServer)).Msg("Error classified")
		return ErrorClassServer
	default:
		return ""
	}
}

// bufferResponse reads and closes the body of resp, replacing it with an
// in-memory copy, and returns the bytes read.
func bufferResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return data, nil
}

// Close releases idle connections held by the client. The Redis client is
// owned by the caller and stays open.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
