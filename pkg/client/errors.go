package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrorKind identifies one member of the closed error taxonomy.
type ErrorKind string

const (
	// Connectivity-class failures (no usable HTTP exchange).

	// KindNoConnection indicates the network is down.
	KindNoConnection ErrorKind = "no_connection"

	// KindTimeout indicates the request exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindServerUnreachable indicates the host could not be reached.
	KindServerUnreachable ErrorKind = "server_unreachable"

	// KindSSL indicates a TLS handshake or certificate failure.
	KindSSL ErrorKind = "ssl"

	// HTTP-class failures (a completed exchange with a non-2xx status).

	KindBadRequest         ErrorKind = "bad_request"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindNotFound           ErrorKind = "not_found"
	KindMethodNotAllowed   ErrorKind = "method_not_allowed"
	KindConflict           ErrorKind = "conflict"
	KindValidation         ErrorKind = "validation"
	KindRateLimited        ErrorKind = "rate_limited"
	KindServer             ErrorKind = "server"
	KindServiceUnavailable ErrorKind = "service_unavailable"

	// Client-class failures (local to this process).

	KindEncoding        ErrorKind = "encoding"
	KindDecoding        ErrorKind = "decoding"
	KindInvalidURL      ErrorKind = "invalid_url"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindCancelled       ErrorKind = "cancelled"
	KindUnknown         ErrorKind = "unknown"
)

// FieldError describes a single field failure inside a 422 response body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error is the typed error surfaced by the client for every failure mode.
// Callers branch on Kind (or the Retryable/RequiresReauth predicates)
// instead of parsing messages.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// RetryAfter is the server-requested delay for rate_limited errors.
	RetryAfter time.Duration

	// Fields holds per-field failures for validation errors.
	Fields []FieldError

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("doclane %s error (status %d): %s: %v", e.Kind, e.StatusCode, msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("doclane %s error: %s: %v", e.Kind, msg, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("doclane %s error (status %d): %s", e.Kind, e.StatusCode, msg)
	default:
		return fmt.Sprintf("doclane %s error: %s", e.Kind, msg)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a fresh attempt of the same request may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindServerUnreachable, KindServer, KindServiceUnavailable, KindRateLimited:
		return true
	default:
		return false
	}
}

// RequiresReauth reports whether the failure calls for a token refresh.
func (e *Error) RequiresReauth() bool {
	return e.Kind == KindUnauthorized
}

// errorBody is the structured error payload the platform returns.
type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// ClassifyResponse maps a completed non-2xx HTTP exchange to a typed error.
// The body is consulted for the optional message field and, on 422, the
// structured field-error list; an unparsable body degrades gracefully.
func ClassifyResponse(statusCode int, body []byte, header http.Header) *Error {
	var parsed errorBody
	if len(body) > 0 {
		// Best effort only. A non-JSON body leaves parsed zero-valued.
		_ = json.Unmarshal(body, &parsed)
	}

	switch {
	case statusCode == http.StatusBadRequest:
		return &Error{Kind: KindBadRequest, StatusCode: statusCode, Message: parsed.Message}
	case statusCode == http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, StatusCode: statusCode, Message: parsed.Message}
	case statusCode == http.StatusForbidden:
		return &Error{Kind: KindForbidden, StatusCode: statusCode, Message: parsed.Message}
	case statusCode == http.StatusNotFound:
		return &Error{Kind: KindNotFound, StatusCode: statusCode, Message: parsed.Message}
	case statusCode == http.StatusMethodNotAllowed:
		return &Error{Kind: KindMethodNotAllowed, StatusCode: statusCode, Message: parsed.Message}
	case statusCode == http.StatusConflict:
		return &Error{Kind: KindConflict, StatusCode: statusCode, Message: parsed.Message}
	case statusCode == http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidation, StatusCode: statusCode, Message: parsed.Message, Fields: parsed.Errors}
	case statusCode == http.StatusTooManyRequests:
		return &Error{
			Kind:       KindRateLimited,
			StatusCode: statusCode,
			Message:    parsed.Message,
			RetryAfter: ParseRetryAfter(header),
		}
	case statusCode == http.StatusServiceUnavailable:
		return &Error{Kind: KindServiceUnavailable, StatusCode: statusCode, Message: parsed.Message}
	case statusCode >= 500 && statusCode <= 599:
		return &Error{Kind: KindServer, StatusCode: statusCode, Message: parsed.Message}
	default:
		return &Error{Kind: KindInvalidResponse, StatusCode: statusCode, Message: parsed.Message}
	}
}

// ClassifyTransportError maps a failure that produced no HTTP response at
// all (dial, TLS, deadline, cancellation) to a typed error.
func ClassifyTransportError(err error) *Error {
	if err == nil {
		return nil
	}

	// Preserve an already-typed error from a nested pipeline stage.
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCancelled, Message: "request cancelled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
	}

	var certVerifyErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalidErr x509.CertificateInvalidError
	var recordHdrErr tls.RecordHeaderError
	if errors.As(err, &certVerifyErr) ||
		errors.As(err, &unknownAuthErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &certInvalidErr) ||
		errors.As(err, &recordHdrErr) {
		return &Error{Kind: KindSSL, Message: "tls failure", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindServerUnreachable, Message: "host lookup failed", Err: err}
	}

	switch {
	case errors.Is(err, syscall.ENETDOWN), errors.Is(err, syscall.ENETUNREACH):
		return &Error{Kind: KindNoConnection, Message: "network unavailable", Err: err}
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EHOSTUNREACH):
		return &Error{Kind: KindServerUnreachable, Message: "host unreachable", Err: err}
	}

	return &Error{Kind: KindUnknown, Message: "transport failure", Err: err}
}

// ParseRetryAfter reads the Retry-After header as integer or decimal
// seconds. Returns 0 when the header is absent or unparsable. The
// HTTP-date form is not used by the platform and is ignored.
func ParseRetryAfter(header http.Header) time.Duration {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
