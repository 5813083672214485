// Package client provides the core Doclane HTTP request pipeline:
// endpoint descriptors, an ordered interceptor chain, a closed typed
// error taxonomy, single-flight token refresh, and bounded retries
// with exponential backoff.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/doclane/doclane-go/pkg/logging"
)

// Prometheus metrics for request execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doclane_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doclane_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doclane_errors_total",
		Help: "Total API errors by kind",
	}, []string{"kind"})
)

// Doer sends one transport request. *http.Client satisfies it; tests
// substitute their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the platform API root, e.g. "https://api.doclane.io".
	BaseURL string

	// UserAgent identifies the integration, e.g. "doclane-ios/2.4.1".
	UserAgent string

	// Timeout is the client-wide default per-attempt timeout.
	Timeout time.Duration

	// HTTPClient overrides the transport (for testing and proxies).
	HTTPClient Doer
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// Client executes API calls described by Endpoint values. It owns the
// base URL, the transport, the mutable auth token, and the interceptor
// chain. A single Client is safe for concurrent use; construct one at
// process start and inject it into collaborators.
type Client struct {
	httpClient Doer
	baseURL    string
	userAgent  string
	logger     zerolog.Logger

	mu           sync.RWMutex
	token        string
	interceptors []Interceptor
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		logger:     logging.NewLogger("api-client"),
	}, nil
}

// SetAuthToken replaces the current auth token. An empty string clears it.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// AuthToken returns the current auth token, or "" when none is set.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// AddInterceptor appends an interceptor to the chain. The chain is
// append-only; ordering is registration order for both phases.
func (c *Client) AddInterceptor(i Interceptor) {
	c.mu.Lock()
	c.interceptors = append(c.interceptors, i)
	c.mu.Unlock()
}

// snapshot returns the interceptor list as of now. Interceptors added
// mid-call apply to subsequent calls only.
func (c *Client) snapshot() []Interceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Interceptor, len(c.interceptors))
	copy(out, c.interceptors)
	return out
}

// Request executes the endpoint and decodes the 2xx JSON body into T.
// Decode failures surface as a decoding-kind typed error.
func Request[T any](ctx context.Context, c *Client, ep Endpoint) (T, error) {
	var out T
	data, _, err := c.do(ctx, ep)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &Error{Kind: KindDecoding, Message: "decode response body", Err: err}
	}
	return out, nil
}

// RequestVoid executes the endpoint and discards the body. Any 2xx
// status (including 204) is success.
func (c *Client) RequestVoid(ctx context.Context, ep Endpoint) error {
	_, _, err := c.do(ctx, ep)
	return err
}

// RequestData executes the endpoint and returns the raw response bytes.
func (c *Client) RequestData(ctx context.Context, ep Endpoint) ([]byte, error) {
	data, _, err := c.do(ctx, ep)
	return data, err
}

// do orchestrates one logical call end to end: build, pre-request
// hooks, send, classification, post-response hooks, final result.
func (c *Client) do(ctx context.Context, ep Endpoint) ([]byte, *http.Response, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(ep.Path).Observe(time.Since(start).Seconds())
	}()

	interceptors := c.snapshot()

	data, resp, err := c.send(ctx, ep, interceptors)
	if err != nil {
		// Transport-level failures never reach the post-response
		// phase; classify and surface immediately.
		typed := ClassifyTransportError(err)
		errorsTotal.WithLabelValues(string(typed.Kind)).Inc()
		c.logger.Error().
			Str("endpoint", ep.Path).
			Str("error_kind", string(typed.Kind)).
			Err(err).
			Msg("Transport failure")
		return nil, nil, typed
	}

	// Classify the first pass before the chain runs: the call counts
	// as failed from here even though an interceptor may still
	// recover it via replay.
	if !is2xx(resp.StatusCode) {
		firstPass := ClassifyResponse(resp.StatusCode, data, resp.Header)
		errorsTotal.WithLabelValues(string(firstPass.Kind)).Inc()
		c.logger.Warn().
			Str("endpoint", ep.Path).
			Int("status", resp.StatusCode).
			Str("error_kind", string(firstPass.Kind)).
			Msg("API request error")
	}

	replay := func(ctx context.Context) ([]byte, *http.Response, error) {
		d, r, sendErr := c.send(ctx, ep, interceptors)
		if sendErr != nil {
			return nil, nil, ClassifyTransportError(sendErr)
		}
		return d, r, nil
	}

	for _, ic := range interceptors {
		data, resp, err = ic.InterceptResponse(ctx, data, resp, replay)
		if err != nil {
			typed := ClassifyTransportError(err)
			errorsTotal.WithLabelValues(string(typed.Kind)).Inc()
			return nil, nil, typed
		}
	}

	requestsTotal.WithLabelValues(ep.Path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if !is2xx(resp.StatusCode) {
		return nil, resp, ClassifyResponse(resp.StatusCode, data, resp.Header)
	}

	c.logger.Debug().
		Str("endpoint", ep.Path).
		Int("status", resp.StatusCode).
		Msg("API request completed")
	return data, resp, nil
}

// send executes steps build → pre-request hooks → transport for one
// attempt. The response body is fully read and restored so that hooks
// and callers can reuse it.
func (c *Client) send(ctx context.Context, ep Endpoint, interceptors []Interceptor) ([]byte, *http.Response, error) {
	sendCtx := ctx
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	req, err := c.buildRequest(sendCtx, ep)
	if err != nil {
		return nil, nil, err
	}

	for _, ic := range interceptors {
		if err := ic.InterceptRequest(sendCtx, req); err != nil {
			return nil, nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))

	return data, resp, nil
}

func is2xx(status int) bool {
	return status >= 200 && status <= 299
}
