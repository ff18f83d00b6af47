// Package metrics provides centralized Prometheus metrics registry for the forecast engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_forecast",
		Name:      "predictions_total",
		Help:      "Total number of prediction requests by sport, market and status",
	}, []string{"sport", "market", "status"})
	WarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_forecast",
		Name:      "prediction_warnings_total",
		Help:      "Total number of non-fatal prediction warnings by code",
	}, []string{"code"})
	ArtifactLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_forecast",
		Name:      "artifact_loads_total",
		Help:      "Total number of model artifact loads by family and status",
	}, []string{"family", "status"})
	SimulationTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clever_forecast",
		Name:      "simulation_timeouts_total",
		Help:      "Total number of simulations cut short by their deadline",
	})
	ExplainRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_forecast",
		Name:      "explain_requests_total",
		Help:      "Total number of explainability requests by status",
	}, []string{"status"})
)

// Gauge metrics
var (
	CachedArtifacts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clever_forecast",
		Name:      "cached_artifacts",
		Help:      "Number of model artifacts currently held by the registry",
	})
	ExplainCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clever_forecast",
		Name:      "explain_cache_hit_ratio",
		Help:      "Hit ratio of the explainability report cache",
	})
	ExplainCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clever_forecast",
		Name:      "explain_cache_size",
		Help:      "Number of cached explainability reports",
	})
)

// Histogram metrics
var (
	PredictionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clever_forecast",
		Name:      "prediction_latency_seconds",
		Help:      "Latency of end-to-end prediction requests in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"sport", "market"})
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clever_forecast",
		Name:      "simulation_duration_seconds",
		Help:      "Duration of Monte Carlo score simulations in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	ArtifactLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clever_forecast",
		Name:      "artifact_load_duration_seconds",
		Help:      "Duration of model artifact loads in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	EnsembleAgreement = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clever_forecast",
		Name:      "ensemble_agreement",
		Help:      "Agreement scores of combined ensemble predictions",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"sport", "market"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(WarningsTotal)
		registry.MustRegister(ArtifactLoadsTotal)
		registry.MustRegister(SimulationTimeoutsTotal)
		registry.MustRegister(ExplainRequestsTotal)

		// Register gauge metrics
		registry.MustRegister(CachedArtifacts)
		registry.MustRegister(ExplainCacheHitRatio)
		registry.MustRegister(ExplainCacheSize)

		// Register histogram metrics
		registry.MustRegister(PredictionLatency)
		registry.MustRegister(SimulationDuration)
		registry.MustRegister(ArtifactLoadDuration)
		registry.MustRegister(EnsembleAgreement)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records a finished prediction request.
func RecordPrediction(sport, market, status string, durationSeconds float64) {
	PredictionsTotal.WithLabelValues(sport, market, status).Inc()
	PredictionLatency.WithLabelValues(sport, market).Observe(durationSeconds)
}

// RecordWarning records a non-fatal prediction warning.
func RecordWarning(code string) {
	WarningsTotal.WithLabelValues(code).Inc()
}

// RecordAgreement records the agreement of a combined ensemble.
func RecordAgreement(sport, market string, agreement float64) {
	EnsembleAgreement.WithLabelValues(sport, market).Observe(agreement)
}

// RecordArtifactLoad records a model artifact load attempt.
func RecordArtifactLoad(family, status string, durationSeconds float64) {
	ArtifactLoadsTotal.WithLabelValues(family, status).Inc()
	ArtifactLoadDuration.Observe(durationSeconds)
}

// UpdateCachedArtifacts updates the cached artifacts gauge.
func UpdateCachedArtifacts(count float64) {
	CachedArtifacts.Set(count)
}

// RecordSimulation records a completed simulation run.
func RecordSimulation(durationSeconds float64, timedOut bool) {
	SimulationDuration.Observe(durationSeconds)
	if timedOut {
		SimulationTimeoutsTotal.Inc()
	}
}

// RecordExplainRequest records an explainability request outcome.
func RecordExplainRequest(status string) {
	ExplainRequestsTotal.WithLabelValues(status).Inc()
}

// UpdateExplainCache updates the explainability cache gauges.
func UpdateExplainCache(hitRatio float64, size int) {
	ExplainCacheHitRatio.Set(hitRatio)
	ExplainCacheSize.Set(float64(size))
}
