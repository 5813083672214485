package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is the fallback TTL when the response carries no caching
// headers.
const DefaultTTL = 5 * time.Minute

// Entry is one cached API response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// LastModified mirrors the Last-Modified response header.
	LastModified time.Time `json:"last_modified"`

	// StatusCode of the cached response.
	StatusCode int `json:"status_code"`

	// Headers of the cached response.
	Headers http.Header `json:"headers"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// NewEntry builds an Entry from a completed exchange. Expiry comes from
// Cache-Control: max-age when present, then the Expires header, then
// DefaultTTL.
func NewEntry(data []byte, resp *http.Response) *Entry {
	entry := &Entry{
		Data:       data,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   time.Now(),
		Expires:    parseExpiry(resp.Header),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// parseExpiry derives the entry expiry from response headers.
func parseExpiry(headers http.Header) time.Time {
	if maxAge := parseMaxAge(headers.Get("Cache-Control")); maxAge > 0 {
		return time.Now().Add(maxAge)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(DefaultTTL)
	}
	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(DefaultTTL)
	}
	if expires.Before(time.Now()) {
		return time.Now()
	}
	return expires
}

// parseMaxAge extracts max-age seconds from a Cache-Control value.
// Returns 0 when absent, unparsable, or when caching is forbidden.
func parseMaxAge(cacheControl string) time.Duration {
	if cacheControl == "" {
		return 0
	}
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "no-store" || directive == "no-cache" {
			return 0
		}
		if rest, found := strings.CutPrefix(directive, "max-age="); found {
			secs, err := strconv.Atoi(rest)
			if err != nil || secs <= 0 {
				return 0
			}
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// SupportsConditionalRequest reports whether the entry carries a
// validator usable for If-None-Match / If-Modified-Since.
func (e *Entry) SupportsConditionalRequest() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (preferred) or
// If-Modified-Since to the request.
func (e *Entry) AddConditionalHeaders(req *http.Request) {
	if e.ETag != "" {
		req.Header.Set("If-None-Match", e.ETag)
	} else if !e.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", e.LastModified.Format(http.TimeFormat))
	}
}
