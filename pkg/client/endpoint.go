package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Endpoint declaratively describes one API call. Callers construct a
// value per call; the client consumes it once and never mutates it.
type Endpoint struct {
	// Path is joined onto the client's base URL, e.g. "/v1/documents".
	Path string

	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE).
	Method string

	// Query holds URL query parameters, standard encoding applied.
	Query url.Values

	// Body, when non-nil, is serialized to JSON for the request body.
	Body any

	// Headers are merged over the defaults, overriding on collision.
	Headers map[string]string

	// ContentType overrides the default "application/json".
	ContentType string

	// RequiresAuth asks for a bearer token. When no token is set the
	// request goes out without the header; the resulting 401 routes
	// through the auth interceptor's refresh path.
	RequiresAuth bool

	// Timeout overrides the client-wide default when positive.
	Timeout time.Duration
}

// buildRequest turns an endpoint into a transport request against the
// client's base URL, injecting the current token when required.
func (c *Client) buildRequest(ctx context.Context, ep Endpoint) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + ep.Path)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, Message: "build request URL", Err: err}
	}
	if len(ep.Query) > 0 {
		u.RawQuery = ep.Query.Encode()
	}

	var body []byte
	if ep.Body != nil {
		body, err = json.Marshal(ep.Body)
		if err != nil {
			return nil, &Error{Kind: KindEncoding, Message: "encode request body", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, Message: "build request", Err: err}
	}

	contentType := ep.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if ep.RequiresAuth {
		if token := c.AuthToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
