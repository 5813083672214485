package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/doclane/doclane-go/pkg/logging"
)

// LoggingInterceptor emits a structured event per attempt and per
// response. Pure observability: it never alters control flow.
type LoggingInterceptor struct {
	logger zerolog.Logger
}

// NewLoggingInterceptor creates a logging interceptor.
func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{logger: logging.NewLogger("http")}
}

// InterceptRequest tags the request with an X-Request-ID (when absent)
// and logs the outgoing attempt.
func (l *LoggingInterceptor) InterceptRequest(_ context.Context, req *http.Request) error {
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	l.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Msg("Sending request")
	return nil
}

// InterceptResponse logs the completed exchange and passes it through.
func (l *LoggingInterceptor) InterceptResponse(_ context.Context, data []byte, resp *http.Response, _ Replay) ([]byte, *http.Response, error) {
	evt := l.logger.Debug()
	if !is2xx(resp.StatusCode) {
		evt = l.logger.Warn()
	}
	evt.Int("status", resp.StatusCode).
		Int("body_bytes", len(data)).
		Msg("Received response")
	return data, resp, nil
}

// ActivityInterceptor notifies callbacks when requests go out and
// responses come back, for UI-level activity indication. Side effects
// only; the exchange is never modified.
type ActivityInterceptor struct {
	// OnRequest fires once per attempt, including replays.
	OnRequest func(method, url string)

	// OnResponse fires once per logical call with the final status.
	OnResponse func(status int)
}

// InterceptRequest implements Interceptor.
func (a *ActivityInterceptor) InterceptRequest(_ context.Context, req *http.Request) error {
	if a.OnRequest != nil {
		a.OnRequest(req.Method, req.URL.String())
	}
	return nil
}

// InterceptResponse implements Interceptor.
func (a *ActivityInterceptor) InterceptResponse(_ context.Context, data []byte, resp *http.Response, _ Replay) ([]byte, *http.Response, error) {
	if a.OnResponse != nil {
		a.OnResponse(resp.StatusCode)
	}
	return data, resp, nil
}
