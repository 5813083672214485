package cache

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/doclane/doclane-go/pkg/client"
	"github.com/doclane/doclane-go/pkg/logging"
)

// Interceptor plugs the response store into the request pipeline. The
// pre-request hook turns a GET with a cached validator into a
// conditional request; the post-response hook answers a 304 from the
// store and captures fresh 200s. Only GET exchanges participate.
type Interceptor struct {
	store  *Store
	logger zerolog.Logger
}

// NewInterceptor creates a cache interceptor over the given store.
func NewInterceptor(store *Store) *Interceptor {
	return &Interceptor{
		store:  store,
		logger: logging.NewLogger("cache"),
	}
}

// InterceptRequest adds If-None-Match / If-Modified-Since headers when
// a cached entry exists for the request. Cache errors degrade to an
// unconditional request rather than failing the call.
func (i *Interceptor) InterceptRequest(ctx context.Context, req *http.Request) error {
	if req.Method != http.MethodGet {
		return nil
	}

	entry, err := i.store.Get(ctx, KeyForURL(req.Method, req.URL))
	if err != nil {
		if err != ErrCacheMiss {
			i.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Cache get error")
		}
		return nil
	}

	if entry.SupportsConditionalRequest() {
		entry.AddConditionalHeaders(req)
		ConditionalRequests.Inc()
		i.logger.Debug().
			Str("url", req.URL.String()).
			Str("etag", entry.ETag).
			Msg("Making conditional request")
	}
	return nil
}

// InterceptResponse substitutes the cached body on 304 and stores fresh
// cacheable 200s. Everything else passes through.
func (i *Interceptor) InterceptResponse(ctx context.Context, data []byte, resp *http.Response, _ client.Replay) ([]byte, *http.Response, error) {
	if resp.Request == nil || resp.Request.Method != http.MethodGet {
		return data, resp, nil
	}
	key := KeyForURL(resp.Request.Method, resp.Request.URL)

	if resp.StatusCode == http.StatusNotModified {
		entry, err := i.store.Get(ctx, key)
		if err != nil {
			// Validator matched but the entry vanished; nothing to
			// substitute, let the 304 surface.
			i.logger.Warn().Err(err).Str("cache_key", key.String()).Msg("304 with no usable cache entry")
			return data, resp, nil
		}
		NotModifiedResponses.Inc()
		i.logger.Debug().Str("cache_key", key.String()).Msg("304 Not Modified, serving cached body")
		return entry.Data, cachedResponse(entry, resp.Request), nil
	}

	if resp.StatusCode == http.StatusOK {
		entry := NewEntry(data, resp)
		if entry.TTL() > 0 {
			if err := i.store.Set(ctx, key, entry); err != nil {
				i.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				i.logger.Debug().
					Str("cache_key", key.String()).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return data, resp, nil
}

// cachedResponse materializes a cached entry as an HTTP response.
func cachedResponse(entry *Entry, req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: entry.StatusCode,
		Status:     http.StatusText(entry.StatusCode),
		Header:     entry.Headers.Clone(),
		Body:       io.NopCloser(bytes.NewReader(entry.Data)),
		Request:    req,
	}
}
