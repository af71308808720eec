package lists

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for list operations.
var (
	listOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_list_operations_total",
		Help: "Total contact-list operations by action and outcome",
	}, []string{"action", "outcome"})

	listOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_list_operation_duration_seconds",
		Help:    "Contact-list operation duration in seconds by action",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"action"})

	batchContactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_list_batch_contacts_total",
		Help: "Total contacts submitted in batch mutations by action",
	}, []string{"action"})
)

// Outcome labels for hubspot_list_operations_total.
const (
	outcomeSuccess     = "success"
	outcomeRejected    = "rejected"
	outcomeAPIError    = "api_error"
	outcomeTransport   = "transport_error"
	outcomeDecode      = "decode_error"
	outcomeInvalidCall = "invalid"
)
