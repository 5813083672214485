package client

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/doclane/doclane-go/pkg/logging"
)

// ThrottleInterceptor paces outgoing attempts with a token-bucket
// limiter so a burst of concurrent calls cannot exceed the platform's
// request budget. The wait is context-aware; a cancelled wait surfaces
// as a cancelled typed error through the executor.
type ThrottleInterceptor struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewThrottleInterceptor creates a throttle allowing rps requests per
// second with the given burst.
func NewThrottleInterceptor(rps float64, burst int) *ThrottleInterceptor {
	if burst < 1 {
		burst = 1
	}
	return &ThrottleInterceptor{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logging.NewLogger("throttle"),
	}
}

// InterceptRequest blocks until the limiter grants a slot.
func (t *ThrottleInterceptor) InterceptRequest(ctx context.Context, req *http.Request) error {
	if err := t.limiter.Wait(ctx); err != nil {
		t.logger.Debug().Str("url", req.URL.String()).Msg("Throttle wait aborted")
		return err
	}
	return nil
}

// InterceptResponse passes the exchange through untouched.
func (t *ThrottleInterceptor) InterceptResponse(_ context.Context, data []byte, resp *http.Response, _ Replay) ([]byte, *http.Response, error) {
	return data, resp, nil
}
