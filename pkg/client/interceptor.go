package client

import (
	"context"
	"net/http"
)

// Replay re-executes the full build-and-send cycle for the same logical
// call: a fresh transport request is built (so a refreshed token is
// re-injected), every registered pre-request hook runs again, and the
// exchange is sent. Post-response hooks of earlier interceptors are NOT
// re-run; only the interceptor that invoked the replay sees its result.
type Replay func(ctx context.Context) ([]byte, *http.Response, error)

// Interceptor is one unit of the request pipeline. Interceptors run in
// registration order for both phases, for every call.
type Interceptor interface {
	// InterceptRequest may mutate the outgoing request before send.
	// Returning an error aborts the call immediately.
	InterceptRequest(ctx context.Context, req *http.Request) error

	// InterceptResponse inspects a completed exchange and returns the
	// (data, response) pair to thread to the next interceptor. It may
	// substitute a fresh pair, including one obtained through replay.
	// The request (and its body) must not be retained past this call.
	InterceptResponse(ctx context.Context, data []byte, resp *http.Response, replay Replay) ([]byte, *http.Response, error)
}
