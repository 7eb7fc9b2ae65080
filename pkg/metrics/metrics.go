// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCallDuration tracks LLM completion duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// CacheLookupsTotal tracks prediction cache lookups by result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefetch_cache_lookups_total",
			Help: "Prediction cache lookups",
		},
		[]string{"result"},
	)

	// CacheBackendDegraded is 1 once the durable cache has been abandoned.
	CacheBackendDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prefetch_cache_backend_degraded",
			Help: "Whether the cache fell back to in-process storage",
		},
	)

	// PredictionsGenerated tracks predicted Q&A items produced by the model.
	PredictionsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefetch_predictions_generated_total",
			Help: "Predicted Q&A items generated",
		},
	)

	// APICallsSaved tracks LLM calls avoided by cache hits.
	APICallsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefetch_api_calls_saved_total",
			Help: "LLM calls avoided by cache hits",
		},
	)

	// PromotionsTotal tracks queries promoted to known status.
	PromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefetch_promotions_total",
			Help: "Queries promoted to known status",
		},
		[]string{"trigger"},
	)

	// TopicPivotsTotal tracks conversational topic changes.
	TopicPivotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefetch_topic_pivots_total",
			Help: "Conversation turns that changed topic",
		},
	)

	// EventsPublishedTotal tracks prefetch events sent to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefetch_events_published_total",
			Help: "Prefetch events published",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for an LLM completion.
func RecordLLMCall(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordCacheLookup records a prediction cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordEvent records a published prefetch event.
func RecordEvent(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
