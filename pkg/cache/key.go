package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached API response.
type Key struct {
	// Method is the HTTP method; only GET responses are cached.
	Method string

	// Path is the request path, e.g. "/v1/documents".
	Path string

	// Query holds the request query parameters.
	Query url.Values
}

// KeyForURL builds a Key from a request method and URL.
func KeyForURL(method string, u *url.URL) Key {
	return Key{
		Method: method,
		Path:   u.Path,
		Query:  u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: doclane:METHOD:path:query1=val1:query2=val2
func (k Key) String() string {
	parts := []string{"doclane", strings.ToUpper(k.Method)}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism.
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
