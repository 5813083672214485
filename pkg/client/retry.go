package client

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/doclane/doclane-go/pkg/logging"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doclane_retries_total",
		Help: "Total number of retry attempts by status",
	}, []string{"status"})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doclane_retry_backoff_seconds",
		Help:    "Backoff duration before each retry attempt",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclane_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

// RetryConfig holds the configuration for the retry interceptor.
type RetryConfig struct {
	// MaxRetries is the maximum number of replay attempts per request key.
	MaxRetries int

	// BaseDelay is the backoff base.
	BaseDelay time.Duration

	// MaxDelay caps both exponential and Retry-After delays.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// JitterFactor (0..1) adds uniform random jitter of ±delay*factor.
	JitterFactor float64

	// RetryableStatusCodes are the HTTP statuses worth replaying.
	RetryableStatusCodes map[int]bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
		RetryableStatusCodes: map[int]bool{
			http.StatusRequestTimeout:      true,
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

// RetryInterceptor replays transient failures with exponential backoff
// and jitter, honoring a parseable Retry-After header over the computed
// delay. Attempt counters are keyed per URL, so two calls hitting the
// same URL share backoff state; requests without a URL get a one-off
// key and are never deduplicated.
type RetryInterceptor struct {
	cfg    RetryConfig
	logger zerolog.Logger

	mu       sync.Mutex
	attempts map[string]int
}

// NewRetryInterceptor creates a retry interceptor, filling zero-valued
// config fields with defaults.
func NewRetryInterceptor(cfg RetryConfig) *RetryInterceptor {
	def := DefaultRetryConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFactor < 0 || cfg.JitterFactor > 1 {
		cfg.JitterFactor = def.JitterFactor
	}
	if cfg.RetryableStatusCodes == nil {
		cfg.RetryableStatusCodes = def.RetryableStatusCodes
	}
	return &RetryInterceptor{
		cfg:      cfg,
		logger:   logging.NewLogger("retry-interceptor"),
		attempts: make(map[string]int),
	}
}

// InterceptRequest is a no-op; retry decisions need a response.
func (r *RetryInterceptor) InterceptRequest(_ context.Context, _ *http.Request) error {
	return nil
}

// InterceptResponse implements the bounded retry loop. A non-retryable
// status passes through unchanged; an exhausted key clears its counter
// and passes through the last exchange; a cancelled backoff surfaces as
// a cancelled typed error.
func (r *RetryInterceptor) InterceptResponse(ctx context.Context, data []byte, resp *http.Response, replay Replay) ([]byte, *http.Response, error) {
	if !r.cfg.RetryableStatusCodes[resp.StatusCode] {
		return data, resp, nil
	}

	key := requestKey(resp)
	// Retry-After from the most recent failure; zero means "use the
	// exponential schedule instead".
	retryAfter := ParseRetryAfter(resp.Header)
	lastStatus := resp.StatusCode

	for {
		attempt, ok := r.nextAttempt(key)
		if !ok {
			retryExhaustedTotal.Inc()
			r.logger.Warn().
				Str("request_key", key).
				Int("max_retries", r.cfg.MaxRetries).
				Msg("Retry attempts exhausted")
			return data, resp, nil
		}

		delay := r.Delay(attempt, retryAfter)
		retriesTotal.WithLabelValues(statusLabel(lastStatus)).Inc()
		retryBackoffSeconds.Observe(delay.Seconds())
		r.logger.Debug().
			Str("request_key", key).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return nil, nil, ClassifyTransportError(ctx.Err())
		case <-time.After(delay):
		}

		newData, newResp, err := replay(ctx)
		if err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				retryAfter = apiErr.RetryAfter
				if apiErr.StatusCode > 0 {
					lastStatus = apiErr.StatusCode
				}
				continue
			}
			return nil, nil, err
		}

		data, resp = newData, newResp
		if is2xx(resp.StatusCode) {
			r.clear(key)
			r.logger.Info().
				Str("request_key", key).
				Int("attempt", attempt).
				Msg("Request succeeded after retry")
			return data, resp, nil
		}
		if !r.cfg.RetryableStatusCodes[resp.StatusCode] {
			return data, resp, nil
		}
		retryAfter = ParseRetryAfter(resp.Header)
		lastStatus = resp.StatusCode
	}
}

// Delay computes the backoff before the given attempt (1-based). A
// positive retryAfter wins over the exponential schedule and is never
// jittered, only clamped to MaxDelay.
func (r *RetryInterceptor) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > r.cfg.MaxDelay {
			return r.cfg.MaxDelay
		}
		return retryAfter
	}

	delay := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt))
	if delay > float64(r.cfg.MaxDelay) {
		delay = float64(r.cfg.MaxDelay)
	}
	if r.cfg.JitterFactor > 0 {
		delay += delay * r.cfg.JitterFactor * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// nextAttempt increments and returns the attempt count for key, or
// false when the ceiling is reached (clearing the counter so a later
// call to the same URL starts fresh).
func (r *RetryInterceptor) nextAttempt(key string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts[key] >= r.cfg.MaxRetries {
		delete(r.attempts, key)
		return 0, false
	}
	r.attempts[key]++
	return r.attempts[key], true
}

// clear removes the attempt counter for key.
func (r *RetryInterceptor) clear(key string) {
	r.mu.Lock()
	delete(r.attempts, key)
	r.mu.Unlock()
}

// requestKey derives the retry identity from the exchange's URL. When
// no URL is available the key is unique per invocation, deliberately
// disabling cross-call deduplication for such requests.
func requestKey(resp *http.Response) string {
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return uuid.NewString()
}

func statusLabel(status int) string {
	if status <= 0 {
		return "transport"
	}
	return strconv.Itoa(status)
}
