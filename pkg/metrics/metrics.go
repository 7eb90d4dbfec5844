// Package metrics exposes the Prometheus metrics of the CBBD client.
// The metrics are defined in their respective packages (cache, client,
// normalize, ratelimit) to avoid circular dependencies; importing this
// package registers all of them.
package metrics

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Registered via promauto on import.
	_ "github.com/Sternrassler/cbbd-client/pkg/cache"
	_ "github.com/Sternrassler/cbbd-client/pkg/client"
	_ "github.com/Sternrassler/cbbd-client/pkg/normalize"
	_ "github.com/Sternrassler/cbbd-client/pkg/ratelimit"
)

// Namespace prefixes every metric name of the client.
const Namespace = "cbbd_"

// Registry is the default Prometheus registry used by the CBBD client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Families returns the sorted names of the client's metric families that
// currently hold at least one series. Labelled metrics appear once a
// series has been observed.
func Families() ([]string, error) {
	mfs, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, mf := range mfs {
		if strings.HasPrefix(mf.GetName(), Namespace) {
			names = append(names, mf.GetName())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - cbbd_cache_hits_total{layer} (Counter): Cache hits by layer (memory, shared)
//   - cbbd_cache_misses_total (Counter): Cache misses
//   - cbbd_cache_evictions_total{reason} (Counter): Evictions by reason (capacity, expired)
//   - cbbd_cache_entries (Gauge): Entries in the memory layer
//   - cbbd_cache_errors_total{operation} (Counter): Shared layer and stats errors
//
// Request Metrics (pkg/client):
//   - cbbd_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - cbbd_request_duration_seconds{endpoint} (Histogram): Call duration including retries
//   - cbbd_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - cbbd_circuit_breaker_state{name} (Gauge): 0 closed, 1 half-open, 2 open
//
// Retry Metrics (pkg/client):
//   - cbbd_retries_total{error_class} (Counter): Retry attempts by error class
//   - cbbd_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - cbbd_retry_exhausted_total{error_class} (Counter): Calls that exhausted their retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - cbbd_rate_limit_calls_remaining (Gauge): Remaining API call quota
//   - cbbd_rate_limit_cooldowns_total (Counter): 429 responses that started a cool-down
//   - cbbd_rate_limit_delayed_requests_total (Counter): Requests held back by a cool-down
//   - cbbd_rate_limit_wait_seconds (Histogram): Time spent waiting for the token bucket
//
// Normalization Metrics (pkg/normalize):
//   - cbbd_normalize_records_total{type} (Counter): Records produced by record type
//   - cbbd_normalize_coercion_failures_total{type} (Counter): Fields nulled by failed coercion
//   - cbbd_normalize_malformed_inputs_total{type} (Counter): Payloads wrapped or skipped for their shape
//   - cbbd_normalize_overrides_applied_total{type} (Counter): Records patched by overrides
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cbbd_cache_hits_total[5m])) /
//   (sum(rate(cbbd_cache_hits_total[5m])) + sum(rate(cbbd_cache_misses_total[5m])))
//
//   # Remaining quota
//   cbbd_rate_limit_calls_remaining < 100
//
//   # Request Error Rate
//   rate(cbbd_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(cbbd_request_duration_seconds_bucket[5m]))
