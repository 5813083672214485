package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"
)

func TestClassifyResponse_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected ErrorKind
	}{
		{name: "400 bad request", status: 400, body: `{"message":"bad payload"}`, expected: KindBadRequest},
		{name: "401 unauthorized", status: 401, body: "", expected: KindUnauthorized},
		{name: "403 forbidden", status: 403, body: `{"message":"no access"}`, expected: KindForbidden},
		{name: "404 not found", status: 404, body: "", expected: KindNotFound},
		{name: "405 method not allowed", status: 405, body: "", expected: KindMethodNotAllowed},
		{name: "409 conflict", status: 409, body: `{"message":"version conflict"}`, expected: KindConflict},
		{name: "422 validation", status: 422, body: `{"errors":[{"field":"title","message":"required","code":"missing"}]}`, expected: KindValidation},
		{name: "429 rate limited", status: 429, body: "", expected: KindRateLimited},
		{name: "500 server error", status: 500, body: "", expected: KindServer},
		{name: "502 server error", status: 502, body: "", expected: KindServer},
		{name: "503 service unavailable", status: 503, body: "", expected: KindServiceUnavailable},
		{name: "599 server error", status: 599, body: "", expected: KindServer},
		{name: "302 unexpected status", status: 302, body: "", expected: KindInvalidResponse},
		{name: "418 unexpected status", status: 418, body: "", expected: KindInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ClassifyResponse(tt.status, []byte(tt.body), http.Header{})
			if apiErr.Kind != tt.expected {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, tt.expected)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyResponse_MessageFromBody(t *testing.T) {
	apiErr := ClassifyResponse(400, []byte(`{"message":"title is required"}`), http.Header{})
	if apiErr.Message != "title is required" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "title is required")
	}
}

func TestClassifyResponse_UnparsableBody(t *testing.T) {
	apiErr := ClassifyResponse(422, []byte("<html>oops</html>"), http.Header{})
	if apiErr.Kind != KindValidation {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindValidation)
	}
	if len(apiErr.Fields) != 0 {
		t.Errorf("Fields = %v, want empty", apiErr.Fields)
	}
}

func TestClassifyResponse_ValidationFields(t *testing.T) {
	body := `{"message":"validation failed","errors":[
		{"field":"title","message":"required","code":"missing"},
		{"field":"slug","message":"already taken","code":"duplicate"}
	]}`
	apiErr := ClassifyResponse(422, []byte(body), http.Header{})

	if len(apiErr.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(apiErr.Fields))
	}
	if apiErr.Fields[0].Field != "title" || apiErr.Fields[0].Code != "missing" {
		t.Errorf("Fields[0] = %+v, want title/missing", apiErr.Fields[0])
	}
	if apiErr.Fields[1].Field != "slug" || apiErr.Fields[1].Message != "already taken" {
		t.Errorf("Fields[1] = %+v, want slug/already taken", apiErr.Fields[1])
	}
}

func TestClassifyResponse_RetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected time.Duration
	}{
		{name: "integer seconds", header: "5", expected: 5 * time.Second},
		{name: "decimal seconds", header: "2.5", expected: 2500 * time.Millisecond},
		{name: "absent", header: "", expected: 0},
		{name: "unparsable", header: "tomorrow", expected: 0},
		{name: "negative", header: "-3", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Retry-After", tt.header)
			}
			apiErr := ClassifyResponse(429, nil, header)
			if apiErr.RetryAfter != tt.expected {
				t.Errorf("RetryAfter = %v, want %v", apiErr.RetryAfter, tt.expected)
			}
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{name: "context cancelled", err: context.Canceled, expected: KindCancelled},
		{name: "wrapped cancellation", err: fmt.Errorf("Get \"http://x\": %w", context.Canceled), expected: KindCancelled},
		{name: "deadline exceeded", err: context.DeadlineExceeded, expected: KindTimeout},
		{name: "net timeout", err: &net.DNSError{Err: "i/o timeout", IsTimeout: true}, expected: KindTimeout},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", IsNotFound: true}, expected: KindServerUnreachable},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), expected: KindServerUnreachable},
		{name: "host unreachable", err: fmt.Errorf("dial: %w", syscall.EHOSTUNREACH), expected: KindServerUnreachable},
		{name: "network down", err: fmt.Errorf("dial: %w", syscall.ENETDOWN), expected: KindNoConnection},
		{name: "network unreachable", err: fmt.Errorf("dial: %w", syscall.ENETUNREACH), expected: KindNoConnection},
		{name: "anything else", err: errors.New("mystery failure"), expected: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ClassifyTransportError(tt.err)
			if apiErr.Kind != tt.expected {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, tt.expected)
			}
			if !errors.Is(apiErr, tt.err) && apiErr.Err == nil {
				t.Error("classified error should wrap the cause")
			}
		})
	}
}

func TestClassifyTransportError_PreservesTypedError(t *testing.T) {
	original := &Error{Kind: KindEncoding, Message: "encode request body"}
	classified := ClassifyTransportError(original)
	if classified != original {
		t.Errorf("expected the original typed error, got %v", classified)
	}
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected bool
	}{
		{KindTimeout, true},
		{KindServerUnreachable, true},
		{KindServer, true},
		{KindServiceUnavailable, true},
		{KindRateLimited, true},
		{KindNoConnection, false},
		{KindSSL, false},
		{KindBadRequest, false},
		{KindUnauthorized, false},
		{KindForbidden, false},
		{KindNotFound, false},
		{KindMethodNotAllowed, false},
		{KindConflict, false},
		{KindValidation, false},
		{KindEncoding, false},
		{KindDecoding, false},
		{KindInvalidURL, false},
		{KindInvalidResponse, false},
		{KindCancelled, false},
		{KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			apiErr := &Error{Kind: tt.kind}
			if got := apiErr.Retryable(); got != tt.expected {
				t.Errorf("Retryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_RequiresReauth(t *testing.T) {
	for _, kind := range []ErrorKind{
		KindNoConnection, KindTimeout, KindServerUnreachable, KindSSL,
		KindBadRequest, KindUnauthorized, KindForbidden, KindNotFound,
		KindMethodNotAllowed, KindConflict, KindValidation, KindRateLimited,
		KindServer, KindServiceUnavailable, KindEncoding, KindDecoding,
		KindInvalidURL, KindInvalidResponse, KindCancelled, KindUnknown,
	} {
		apiErr := &Error{Kind: kind}
		expected := kind == KindUnauthorized
		if got := apiErr.RequiresReauth(); got != expected {
			t.Errorf("RequiresReauth() for %q = %v, want %v", kind, got, expected)
		}
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *Error
		expected string
	}{
		{
			name:     "status and message",
			apiError: &Error{Kind: KindServer, StatusCode: 500, Message: "internal server error"},
			expected: "doclane server error (status 500): internal server error",
		},
		{
			name:     "status without message",
			apiError: &Error{Kind: KindNotFound, StatusCode: 404},
			expected: "doclane not_found error (status 404): not_found",
		},
		{
			name:     "wrapped cause",
			apiError: &Error{Kind: KindTimeout, Message: "request timed out", Err: errors.New("i/o timeout")},
			expected: "doclane timeout error: request timed out: i/o timeout",
		},
		{
			name:     "no status no cause",
			apiError: &Error{Kind: KindInvalidURL, Message: "build request URL"},
			expected: "doclane invalid_url error: build request URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	apiErr := &Error{Kind: KindUnknown, Err: cause}

	if !errors.Is(apiErr, cause) {
		t.Error("errors.Is should see through the typed error")
	}

	var target *Error
	if !errors.As(fmt.Errorf("wrapped: %w", apiErr), &target) {
		t.Error("errors.As should find the typed error in a chain")
	}
}

func TestParseRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", " 10 ")
	if got := ParseRetryAfter(header); got != 10*time.Second {
		t.Errorf("ParseRetryAfter = %v, want 10s", got)
	}
}
