package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// External dependency names used as label values
const (
	DependencyRegistry  = "drug_registry"
	DependencyInference = "food_inference"
	DependencyAnalysis  = "analysis_engine"
	DependencySymptoms  = "symptom_llm"
)

var (
	externalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_calls_total",
			Help: "Total number of calls to external dependencies by outcome",
		},
		[]string{"dependency", "outcome"},
	)

	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_call_duration_seconds",
			Help:    "External dependency call duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"dependency"},
	)

	analysisRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Total number of side-effect analysis requests by result",
		},
		[]string{"result"},
	)

	groupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_groups_total",
			Help: "Total number of analysis groups by resolution status",
		},
		[]string{"type", "status"},
	)

	medicationCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medication_cache_lookups_total",
			Help: "Medication registry cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordExternalCall records the outcome and duration of an external call
func RecordExternalCall(dependency, outcome string, duration time.Duration) {
	externalCallsTotal.WithLabelValues(dependency, outcome).Inc()
	externalCallDuration.WithLabelValues(dependency).Observe(duration.Seconds())
}

// RecordAnalysisRequest records a finished orchestration ("success", "validation_error", "error")
func RecordAnalysisRequest(result string) {
	analysisRequestsTotal.WithLabelValues(result).Inc()
}

// RecordGroup records a group resolution ("resolved", "skipped", "degraded")
func RecordGroup(groupType, status string) {
	groupsTotal.WithLabelValues(groupType, status).Inc()
}

// RecordCacheLookup records a medication cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	medicationCacheTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
