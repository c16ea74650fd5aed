/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bias evaluation metrics
var (
	BiasQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_bias_queries_total",
			Help: "Collection queries dispatched by bias evaluators",
		},
		[]string{"bias"},
	)

	BiasQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynbias_bias_query_duration_seconds",
			Help:    "Time from query dispatch to finalized result",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"bias", "status"},
	)

	BiasStaleResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_bias_stale_results_total",
			Help: "Result batches and completions dropped because their query was superseded",
		},
		[]string{"bias", "kind"},
	)

	BiasInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_bias_invalidations_total",
			Help: "Cached bias results discarded",
		},
		[]string{"bias", "reason"},
	)
)

// Collection metrics
var (
	CollectionBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_collection_batches_total",
			Help: "Result batches emitted by collections",
		},
		[]string{"collection"},
	)

	CollectionQueryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_collection_query_errors_total",
			Help: "Collection query runs that ended with an error",
		},
		[]string{"collection"},
	)

	ResultCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_result_cache_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Generator metrics
var (
	GeneratorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_generator_runs_total",
			Help: "Playlist generation runs by outcome",
		},
		[]string{"outcome"},
	)

	GeneratorPendingBiases = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dynbias_generator_pending_biases",
			Help:    "Biases still pending when a generation pass started picking",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
	)
)

// Database metrics
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynbias_db_query_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "table"},
	)

	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_db_errors_total",
			Help: "Database operation errors",
		},
		[]string{"operation", "kind"},
	)

	DatabaseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dynbias_db_connections_active",
			Help: "Open database connections",
		},
	)
)

// HTTP metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynbias_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynbias_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dynbias_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
