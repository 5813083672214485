// Package metrics documents the Prometheus metrics exported by the
// Doclane client. All metrics are defined in their owning packages
// (client, cache) via promauto to keep registration next to use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the client.
var Registry = prometheus.DefaultRegisterer

// Metrics Reference
//
// Request metrics (pkg/client):
//   - doclane_requests_total{endpoint, status} (Counter): requests by endpoint and final HTTP status
//   - doclane_request_duration_seconds{endpoint} (Histogram): logical-call duration, replays included
//   - doclane_errors_total{kind} (Counter): typed errors by kind
//
// Retry metrics (pkg/client):
//   - doclane_retries_total{status} (Counter): replay attempts by triggering status
//   - doclane_retry_backoff_seconds (Histogram): backoff slept before each replay
//   - doclane_retry_exhausted_total (Counter): request keys that hit the retry ceiling
//
// Auth metrics (pkg/client):
//   - doclane_token_refreshes_total{result} (Counter): refresh attempts by success/failure
//   - doclane_token_refresh_waits_total (Counter): 401s that waited on an in-flight refresh
//
// Cache metrics (pkg/cache):
//   - doclane_cache_hits_total{layer="redis"} (Counter): cache hits
//   - doclane_cache_misses_total (Counter): cache misses
//   - doclane_cache_errors_total{operation} (Counter): cache operation errors
//   - doclane_304_responses_total (Counter): 304 Not Modified responses served from cache
//   - doclane_conditional_requests_total (Counter): requests sent with If-None-Match
//
// Example queries:
//
//   # Retry rate
//   rate(doclane_retries_total[5m]) / rate(doclane_requests_total[5m])
//
//   # Refresh dedup effectiveness (waits per refresh)
//   rate(doclane_token_refresh_waits_total[5m]) / rate(doclane_token_refreshes_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(doclane_request_duration_seconds_bucket[5m]))
