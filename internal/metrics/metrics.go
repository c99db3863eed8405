// Package metrics exposes the Prometheus collectors of the triage service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fallback reasons.
const (
	ReasonNoProviders  = "no_providers"
	ReasonProviderErr  = "provider_error"
	ReasonInvalidReply = "invalid_response"
	ReasonTimeout      = "timeout"
	ReasonOffline      = "offline"
)

var (
	triageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_messages_total",
		Help: "Messages triaged by category and classification source",
	}, []string{"category", "source"})

	urgencyScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_urgency_score",
		Help:    "Distribution of urgency scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	escalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_escalations_total",
		Help: "Messages flagged for human escalation",
	})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_fallback_total",
		Help: "Classifications answered by the rule engine instead of an LLM provider",
	}, []string{"reason"})

	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_provider_requests_total",
		Help: "LLM provider classification calls by outcome",
	}, []string{"provider", "status"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_provider_request_duration_seconds",
		Help:    "LLM provider classification latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveTriage(category, source string, score int, escalate bool) {
	triageTotal.WithLabelValues(category, source).Inc()
	urgencyScore.Observe(float64(score))
	if escalate {
		escalations.Inc()
	}
}

func ObserveFallback(reason string) {
	fallbackTotal.WithLabelValues(reason).Inc()
}

func ObserveProvider(provider, status string, latency time.Duration) {
	providerRequests.WithLabelValues(provider, status).Inc()
	providerLatency.WithLabelValues(provider).Observe(latency.Seconds())
}
