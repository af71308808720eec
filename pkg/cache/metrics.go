package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_cache_hits_total",
			Help: "Stored HubSpot pages found for a request",
		},
	)

	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_cache_misses_total",
			Help: "Requests with no stored HubSpot page",
		},
	)

	cacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_cache_stored_bytes_total",
			Help: "Bytes written to the HubSpot page store",
		},
	)

	cacheInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_cache_invalidated_total",
			Help: "Stored pages dropped after a list mutation",
		},
	)

	// NotModifiedResponses counts pages replayed after a 304 Not Modified.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_304_responses_total",
			Help: "Total number of HubSpot 304 Not Modified responses",
		},
	)

	conditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_conditional_requests_total",
			Help: "Requests sent to HubSpot with If-None-Match or If-Modified-Since",
		},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubspot_cache_errors_total",
			Help: "Page store operation errors",
		},
		[]string{"operation"}, // lookup, save, extend, invalidate
	)
)
