package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textilserver_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textilserver_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textilserver_ledger_operations_total",
			Help: "Point ledger operations by outcome",
		},
		[]string{"operation", "result"},
	)

	PointsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textilserver_points_total",
			Help: "Points issued and spent",
		},
		[]string{"direction"},
	)

	ListingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textilserver_listings_created_total",
			Help: "Listings created by type",
		},
		[]string{"type"},
	)

	TierDowngrades = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "textilserver_tier_downgrades_total",
			Help: "Expired memberships downgraded to observer",
		},
	)

	ListingsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "textilserver_listings_expired_total",
			Help: "Listings marked expired by the sweeper",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "textilserver_cache_hits_total",
			Help: "In-process cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "textilserver_cache_misses_total",
			Help: "In-process cache misses",
		},
	)
)

// Ledger outcomes.
const (
	ResultOK           = "ok"
	ResultInsufficient = "insufficient"
	ResultConflict     = "conflict"
	ResultError        = "error"
)
