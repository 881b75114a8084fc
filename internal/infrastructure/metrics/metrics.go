// Package metrics holds the Prometheus collectors of the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_transfers_fetched_total",
			Help: "Transfers returned by providers",
		},
		[]string{"chain", "provider", "facilitator"},
	)

	TransfersSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_transfers_saved_total",
			Help: "Transfers newly inserted into storage",
		},
		[]string{"chain", "provider", "facilitator"},
	)

	WindowSaturations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_window_saturations_total",
			Help: "Time windows whose result count reached the page size",
		},
		[]string{"chain", "provider", "facilitator"},
	)

	WatermarkTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_watermark_timestamp_seconds",
			Help: "Resolved watermark (unix seconds) at the start of the last run",
		},
		[]string{"chain", "provider", "facilitator"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_provider_requests_total",
			Help: "Requests issued to chain indexer APIs",
		},
		[]string{"provider", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_provider_request_duration_seconds",
			Help:    "Latency of chain indexer API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Sync job invocations by final status",
		},
		[]string{"job", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Wall time of sync job invocations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"job"},
	)
)
