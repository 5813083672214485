// Package cache provides a Redis-backed response cache for the Doclane
// client with ETag support for conditional requests.
//
// The cache participates in the request pipeline as an interceptor:
//
//   - before send, a GET with a cached validator gains If-None-Match
//     (or If-Modified-Since) headers
//   - a 304 Not Modified answer is substituted with the cached body
//   - a fresh 200 is stored with a TTL from Cache-Control: max-age,
//     falling back to the Expires header, then DefaultTTL
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewStore(redisClient)
//	apiClient.AddInterceptor(cache.NewInterceptor(store))
//
// # Metrics
//
//   - doclane_cache_hits_total{layer="redis"}
//   - doclane_cache_misses_total
//   - doclane_304_responses_total
//   - doclane_conditional_requests_total
//   - doclane_cache_errors_total{operation}
package cache
