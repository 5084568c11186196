package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	WebhookEvents   *prometheus.CounterVec
	GeminiRequests  *prometheus.CounterVec
	GeminiLatency   *prometheus.HistogramVec
	CRMRequests     *prometheus.CounterVec
	CRMLatency      *prometheus.HistogramVec
	StoreOperations *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Total inbound voice webhook events by type and outcome.",
			}, []string{"type", "outcome"}),
			GeminiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_requests_total",
				Help:      "Total Gemini API requests by outcome.",
			}, []string{"status"}),
			GeminiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gemini_request_duration_seconds",
				Help:      "Latency distribution for Gemini API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"status"}),
			CRMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crm_requests_total",
				Help:      "Total CRM savecontact requests by status.",
			}, []string{"status"}),
			CRMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "crm_request_duration_seconds",
				Help:      "Latency distribution for CRM requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"status"}),
			StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Caller store operations by operation and status.",
			}, []string{"op", "status"}),
			CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Caller cache lookups by result.",
			}, []string{"result"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.WebhookEvents,
			metricsInstance.GeminiRequests,
			metricsInstance.GeminiLatency,
			metricsInstance.CRMRequests,
			metricsInstance.CRMLatency,
			metricsInstance.StoreOperations,
			metricsInstance.CacheLookups,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
