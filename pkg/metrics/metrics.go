package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operation metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_operations_total",
			Help: "Total number of task operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_operation_duration_seconds",
			Help:    "Task operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Reconciled view metrics, refreshed on every list
	TasksListed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "burrow_tasks_listed",
			Help: "Tasks in the last reconciled view by status",
		},
		[]string{"status"},
	)

	RegistryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_registry_entries",
			Help: "Number of names in the task registry",
		},
	)

	// AWS metrics
	AWSAPIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_aws_api_errors_total",
			Help: "Total number of failed AWS API calls by operation",
		},
		[]string{"operation"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_api_requests_total",
			Help: "Total number of HTTP API requests by route and status",
		},
		[]string{"route", "status"},
	)

	// Event broker metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_events_published_total",
			Help: "Lifecycle events accepted by the broker by type",
		},
		[]string{"type"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_events_dropped_total",
			Help: "Lifecycle events dropped by reason (stopped, queue_full, subscriber_full)",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(TasksListed)
	prometheus.MustRegister(RegistryEntries)
	prometheus.MustRegister(AWSAPIErrors)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventsDropped)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation counts one finished operation and observes its duration
func RecordOperation(operation string, timer *Timer, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(operation, result).Inc()
	timer.ObserveDurationVec(OperationDuration, operation)
}

// SetTasksListed replaces the per-status task gauge
func SetTasksListed(counts map[string]int) {
	TasksListed.Reset()
	for status, n := range counts {
		TasksListed.WithLabelValues(status).Set(float64(n))
	}
}
