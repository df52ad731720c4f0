// Package metrics provides Prometheus instrumentation for the predictor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PredictionsTotal tracks predictions by model and cache outcome.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "racecaller",
			Name:      "predictions_total",
			Help:      "Total number of head-to-head predictions made",
		},
		[]string{"model", "cache_hit"},
	)

	// PredictionLatency tracks end-to-end prediction latency.
	PredictionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "racecaller",
			Name:      "prediction_latency_seconds",
			Help:      "Prediction latency in seconds, including history fetch",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// PredictionCacheHitRatio tracks the prediction cache hit ratio.
	PredictionCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "racecaller",
			Name:      "prediction_cache_hit_ratio",
			Help:      "Prediction cache hit ratio",
		},
	)

	// ArtifactLoadsTotal tracks model artifact load attempts by result.
	ArtifactLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "racecaller",
			Name:      "artifact_loads_total",
			Help:      "Total number of model artifact load attempts",
		},
		[]string{"result"}, // loaded, cached, missing, invalid
	)

	// ProviderRequestsTotal tracks history provider requests by status.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "racecaller",
			Name:      "provider_requests_total",
			Help:      "Total number of match history provider requests",
		},
		[]string{"status"},
	)

	// ProviderRateLimitedTotal tracks rate-limit responses from the provider.
	ProviderRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "racecaller",
			Name:      "provider_rate_limited_total",
			Help:      "Total number of rate-limited provider responses",
		},
	)

	// BacktestRunsTotal tracks backtest runs by status.
	BacktestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "racecaller",
			Name:      "backtest_runs_total",
			Help:      "Total number of backtest runs",
		},
		[]string{"status"}, // success, failure
	)

	// BacktestDuration tracks backtest run duration.
	BacktestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "racecaller",
			Name:      "backtest_duration_seconds",
			Help:      "Duration of backtest runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
		},
	)

	// TrainingRunsTotal tracks training runs by outcome.
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "racecaller",
			Name:      "training_runs_total",
			Help:      "Total number of training runs",
		},
		[]string{"status"}, // saved, rejected, failure
	)
)

// Handler returns the Prometheus HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
