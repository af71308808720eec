// Package metrics exposes the Prometheus metrics of the HubSpot client.
// All metrics are defined in their respective packages (lists, client,
// cache, ratelimit) and registered via promauto on the default registry.
//
// This package provides the scrape handler and a reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the HubSpot client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the /metrics scrape handler for Registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// List Operation Metrics (pkg/lists):
//   - hubspot_list_operations_total{action, outcome} (Counter): Operations by action
//     (fetch_page, add_batch, remove_batch) and outcome (success, rejected,
//     api_error, transport_error, decode_error, invalid)
//   - hubspot_list_operation_duration_seconds{action} (Histogram): Operation duration
//   - hubspot_list_batch_contacts_total{action} (Counter): Contacts submitted in batches
//
// Request Metrics (pkg/client):
//   - hubspot_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - hubspot_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - hubspot_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - hubspot_retries_total{error_class} (Counter): Retry attempts by error class
//   - hubspot_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - hubspot_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hubspot_rate_limit_remaining (Gauge): Requests left in the burst window
//   - hubspot_rate_limit_daily_remaining (Gauge): Requests left in the daily budget
//   - hubspot_rate_limit_blocks_total (Counter): Requests blocked by an exhausted limit
//   - hubspot_rate_limit_throttles_total (Counter): Requests delayed by a low limit
//
// Cache Metrics (pkg/cache):
//   - hubspot_cache_hits_total (Counter): Stored pages found for a request
//   - hubspot_cache_misses_total (Counter): Requests with no stored page
//   - hubspot_cache_stored_bytes_total (Counter): Bytes written to the page store
//   - hubspot_cache_invalidated_total (Counter): Pages dropped after an add or remove
//   - hubspot_304_responses_total (Counter): 304 Not Modified responses served from cache
//   - hubspot_conditional_requests_total (Counter): Conditional requests sent
//   - hubspot_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Batch rejection rate
//   sum(rate(hubspot_list_operations_total{outcome="rejected"}[5m])) /
//   sum(rate(hubspot_list_operations_total{action=~".*_batch"}[5m]))
//
//   # Burst window headroom
//   hubspot_rate_limit_remaining < 10
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(hubspot_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(hubspot_304_responses_total[5m]) / rate(hubspot_requests_total[5m])
