// Package client provides the TMDB HTTP fetcher with rate limiting,
// timeouts, and error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/Sternrassler/tmdb-film-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultTimeout bounds a whole Get call including the rate limiter wait.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies this client to TMDB.
	DefaultUserAgent = "tmdb-film-client/0.1.0"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// Prometheus metrics for TMDB client operations.
var (
	tmdbRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_requests_total",
		Help: "Total TMDB requests by endpoint and status",
	}, []string{"endpoint", "status"})

	tmdbRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmdb_request_duration_seconds",
		Help:    "TMDB request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	tmdbErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_errors_total",
		Help: "Total TMDB errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// HTTPDoer is the subset of *http.Client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs GET requests against the TMDB API.
// It is safe for concurrent use.
type Client struct {
	httpClient  HTTPDoer
	baseURL     string
	apiKey      string
	userAgent   string
	timeout     time.Duration
	rateLimiter *ratelimit.Limiter
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client (for testing or custom transports).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithBaseURL overrides the TMDB API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithRateLimiter throttles requests through l.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.rateLimiter = l
	}
}

// WithTimeout bounds each Get call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a TMDB client authenticating with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		logger:     logging.NewLogger(logging.ComponentClient),
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return c, nil
}

// Get fetches base URL + path with the given query parameters and returns
// the response body. Non-2xx responses, transport errors and timeouts are
// returned as *FetchError. Get never retries.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (string, error) {
	endpoint := endpointLabel(path)
	startTime := time.Now()
	defer func() {
		tmdbRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", c.fail(endpoint, path, 0, ErrorClassNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return "", c.fail(endpoint, path, 0, ErrorClassNetwork, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().
		Str("path", path).
		Msg("Executing TMDB request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tmdbRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return "", c.fail(endpoint, path, 0, ErrorClassNetwork, stripURL(err))
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	tmdbRequestsTotal.WithLabelValues(endpoint, status).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		class := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("TMDB request error")
		return "", c.fail(endpoint, path, resp.StatusCode, class, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", c.fail(endpoint, path, resp.StatusCode, ErrorClassNetwork, fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(startTime)).
		Msg("TMDB request completed")

	return string(body), nil
}

// fail records the error metric and builds the FetchError.
func (c *Client) fail(endpoint, path string, status int, class ErrorClass, err error) error {
	tmdbErrorsTotal.WithLabelValues(string(class)).Inc()
	if status == 0 {
		c.logger.Warn().Err(err).Str("path", path).Str("error_class", string(class)).Msg("TMDB request failed")
	}
	return &FetchError{
		Path:       path,
		StatusCode: status,
		Class:      class,
		Err:        err,
	}
}

func (c *Client) buildURL(path string, query map[string]string) string {
	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	values.Set("api_key", c.apiKey)

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path + "?" + values.Encode()
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		// 1xx/3xx that the transport did not follow
		return ErrorClassServer
	}
}

// endpointLabel replaces numeric path segments with {id} to keep metric
// cardinality bounded.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// stripURL drops the request URL from transport errors; it carries the api key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
