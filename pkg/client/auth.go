package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/doclane/doclane-go/pkg/logging"
)

// Prometheus metrics for token refresh coordination.
var (
	tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doclane_token_refreshes_total",
		Help: "Total token refresh attempts by result",
	}, []string{"result"})

	refreshWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclane_token_refresh_waits_total",
		Help: "Total 401 responses that waited on an in-flight refresh instead of refreshing",
	})
)

// TokenStore reads and writes the authoritative auth token. *Client
// satisfies it.
type TokenStore interface {
	AuthToken() string
	SetAuthToken(token string)
}

// TokenRefresher exchanges expired credentials for a new access token.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// DefaultRefreshWait is how long a call that observes a 401 while a
// refresh is already in flight sleeps before replaying.
const DefaultRefreshWait = 500 * time.Millisecond

// AuthInterceptor injects the bearer token before send and, on 401,
// coordinates a single token refresh across any number of concurrent
// calls: exactly one refresh reaches the refresher per outstanding
// refresh window, all other calls wait briefly and replay against the
// updated token.
type AuthInterceptor struct {
	store     TokenStore
	refresher TokenRefresher
	wait      time.Duration
	logger    zerolog.Logger

	mu         sync.Mutex
	refreshing bool
}

// NewAuthInterceptor creates an auth interceptor. refresher may be nil,
// in which case a 401 is terminal.
func NewAuthInterceptor(store TokenStore, refresher TokenRefresher) *AuthInterceptor {
	return &AuthInterceptor{
		store:     store,
		refresher: refresher,
		wait:      DefaultRefreshWait,
		logger:    logging.NewLogger("auth-interceptor"),
	}
}

// SetRefreshWait overrides the in-flight refresh wait. Zero or negative
// values are ignored.
func (a *AuthInterceptor) SetRefreshWait(d time.Duration) {
	if d > 0 {
		a.wait = d
	}
}

// InterceptRequest sets the Authorization header from the token store.
// It overrides whatever the request builder injected so a replay always
// carries the freshest token.
func (a *AuthInterceptor) InterceptRequest(_ context.Context, req *http.Request) error {
	if token := a.store.AuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// InterceptResponse handles exactly one failure class: 401. Everything
// else passes through untouched.
func (a *AuthInterceptor) InterceptResponse(ctx context.Context, data []byte, resp *http.Response, replay Replay) ([]byte, *http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized {
		return data, resp, nil
	}

	if a.refresher == nil {
		return nil, nil, &Error{Kind: KindUnauthorized, StatusCode: http.StatusUnauthorized, Message: "no token refresher configured"}
	}

	a.mu.Lock()
	if a.refreshing {
		a.mu.Unlock()
		// Another call already owns the refresh. Give it a moment,
		// then replay with whatever token it installed. This call
		// must not start a second refresh.
		refreshWaitsTotal.Inc()
		a.logger.Debug().Msg("Waiting on in-flight token refresh")
		select {
		case <-ctx.Done():
			return nil, nil, ClassifyTransportError(ctx.Err())
		case <-time.After(a.wait):
		}
		return replay(ctx)
	}
	a.refreshing = true
	a.mu.Unlock()

	token, err := a.refresh(ctx)
	if err != nil {
		tokenRefreshesTotal.WithLabelValues("failure").Inc()
		a.logger.Warn().Err(err).Msg("Token refresh failed")
		return nil, nil, &Error{Kind: KindUnauthorized, StatusCode: http.StatusUnauthorized, Message: "token refresh failed", Err: err}
	}

	tokenRefreshesTotal.WithLabelValues("success").Inc()
	a.store.SetAuthToken(token)
	a.logger.Info().Msg("Token refreshed, replaying request")
	return replay(ctx)
}

// refresh invokes the refresher with the refreshing flag guaranteed to
// clear on every exit path. The lock is never held across the call.
func (a *AuthInterceptor) refresh(ctx context.Context) (string, error) {
	defer func() {
		a.mu.Lock()
		a.refreshing = false
		a.mu.Unlock()
	}()
	return a.refresher.RefreshToken(ctx)
}
