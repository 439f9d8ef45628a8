// Package metrics provides Prometheus metrics for the Runeterra Roulette backend.
// The server exposes them at /metrics; update-cards pushes the ingestion
// metrics with PushIngestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runeterra_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runeterra_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Card Query Metrics
	CardsServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runeterra_cards_served_total",
			Help: "Total number of cards returned by GET /cards",
		},
	)

	CardQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runeterra_card_query_duration_seconds",
			Help:    "Time taken to fetch, sample and shape a card query",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	VersionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runeterra_version_cache_hits_total",
			Help: "Collection version cache hit count",
		},
	)

	VersionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runeterra_version_cache_misses_total",
			Help: "Collection version cache miss count",
		},
	)

	// Ingestion Metrics
	SetDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runeterra_set_downloads_total",
			Help: "Set bundle downloads by outcome",
		},
		[]string{"result"}, // "success" or "failed"
	)

	SetDownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runeterra_set_download_duration_seconds",
			Help:    "Time taken by a single set bundle download attempt",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runeterra_ingest_runs_total",
			Help: "Card ingestion runs by outcome",
		},
		[]string{"result"},
	)

	IngestCardsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runeterra_ingest_cards_upserted_total",
			Help: "Total number of cards written by ingestion",
		},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runeterra_ingest_duration_seconds",
			Help:    "Wall time of a full ingestion run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	CollectionVersionInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runeterra_collection_version_info",
			Help: "Set to 1 for the collection version recorded by the last ingestion",
		},
		[]string{"version"},
	)
)
