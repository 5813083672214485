package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"testing"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, UserAgent: "doclane-test/1.0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestBuildRequest_URLAndQuery(t *testing.T) {
	c := newTestClient(t, "https://api.doclane.io")

	req, err := c.buildRequest(context.Background(), Endpoint{
		Path:   "/v1/documents",
		Method: "GET",
		Query:  url.Values{"workspace": []string{"eng"}, "limit": []string{"20"}},
	})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	if req.URL.Host != "api.doclane.io" {
		t.Errorf("Host = %q, want api.doclane.io", req.URL.Host)
	}
	if req.URL.Path != "/v1/documents" {
		t.Errorf("Path = %q, want /v1/documents", req.URL.Path)
	}
	if got := req.URL.Query().Get("workspace"); got != "eng" {
		t.Errorf("workspace = %q, want eng", got)
	}
	if got := req.URL.Query().Get("limit"); got != "20" {
		t.Errorf("limit = %q, want 20", got)
	}
}

func TestBuildRequest_DefaultHeaders(t *testing.T) {
	c := newTestClient(t, "https://api.doclane.io")

	req, err := c.buildRequest(context.Background(), Endpoint{Path: "/v1/documents", Method: "GET"})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
	if got := req.Header.Get("User-Agent"); got != "doclane-test/1.0" {
		t.Errorf("User-Agent = %q, want doclane-test/1.0", got)
	}
}

func TestBuildRequest_CustomHeadersOverrideDefaults(t *testing.T) {
	c := newTestClient(t, "https://api.doclane.io")

	req, err := c.buildRequest(context.Background(), Endpoint{
		Path:        "/v1/assets",
		Method:      "POST",
		ContentType: "application/octet-stream",
		Headers:     map[string]string{"Accept": "image/png", "X-Workspace": "eng"},
	})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	if got := req.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", got)
	}
	if got := req.Header.Get("Accept"); got != "image/png" {
		t.Errorf("Accept = %q, want image/png", got)
	}
	if got := req.Header.Get("X-Workspace"); got != "eng" {
		t.Errorf("X-Workspace = %q, want eng", got)
	}
}

func TestBuildRequest_AuthHeader(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		requiresAuth bool
		expected     string
	}{
		{name: "auth required with token", token: "abc123", requiresAuth: true, expected: "Bearer abc123"},
		{name: "auth required without token proceeds bare", token: "", requiresAuth: true, expected: ""},
		{name: "auth not required ignores token", token: "abc123", requiresAuth: false, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "https://api.doclane.io")
			c.SetAuthToken(tt.token)

			req, err := c.buildRequest(context.Background(), Endpoint{
				Path:         "/v1/me",
				Method:       "GET",
				RequiresAuth: tt.requiresAuth,
			})
			if err != nil {
				t.Fatalf("buildRequest: %v", err)
			}
			if got := req.Header.Get("Authorization"); got != tt.expected {
				t.Errorf("Authorization = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuildRequest_BodyRoundTrip(t *testing.T) {
	c := newTestClient(t, "https://api.doclane.io")

	req, err := c.buildRequest(context.Background(), Endpoint{
		Path:   "/v1/documents",
		Method: "POST",
		Body:   map[string]string{"title": "x"},
	})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded["title"] != "x" {
		t.Errorf(`body title = %q, want "x"`, decoded["title"])
	}
}

func TestBuildRequest_EncodingError(t *testing.T) {
	c := newTestClient(t, "https://api.doclane.io")

	_, err := c.buildRequest(context.Background(), Endpoint{
		Path:   "/v1/documents",
		Method: "POST",
		Body:   make(chan int), // not serializable
	})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if apiErr.Kind != KindEncoding {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindEncoding)
	}
	if apiErr.Err == nil {
		t.Error("encoding error should wrap the underlying cause")
	}
}

func TestBuildRequest_InvalidURL(t *testing.T) {
	c := newTestClient(t, "https://api.doclane.io")

	_, err := c.buildRequest(context.Background(), Endpoint{
		Path:   "/v1/docs\x7f",
		Method: "GET",
	})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if apiErr.Kind != KindInvalidURL {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindInvalidURL)
	}
}
