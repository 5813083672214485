// Package testutil provides testing utilities for the Doclane client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// MockAPI is a configurable mock Doclane platform server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock platform server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and registered handlers.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.handlers = make(map[string]http.HandlerFunc)
}

// Requests returns the total request count.
func (m *MockAPI) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Conditionals returns the count of conditional requests seen.
func (m *MockAPI) Conditionals() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// Handle registers a custom handler for a path.
func (m *MockAPI) Handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetJSONResponse makes path answer with a fixed status and JSON body.
// Extra headers apply to every response.
func (m *MockAPI) SetJSONResponse(path string, status int, body string, headers map[string]string) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// SetStatusSequence makes path answer with the given statuses in order,
// repeating the last one once the sequence is exhausted. Non-2xx
// responses carry a JSON error body; 2xx responses carry body.
func (m *MockAPI) SetStatusSequence(path string, statuses []int, body string) {
	var next atomic.Int64
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		idx := int(next.Add(1)) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		status := statuses[idx]

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 200 && status <= 299 {
			fmt.Fprint(w, body)
			return
		}
		fmt.Fprintf(w, `{"message":"scripted failure %d"}`, status)
	})
}

// RequireBearer makes path demand the given bearer token, answering 401
// with a token-expired body otherwise.
func (m *MockAPI) RequireBearer(path, token string, status int, body string) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"token expired"}`)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// defaultHandler answers 404 with a JSON error body.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"message":"not found"}`)
}
