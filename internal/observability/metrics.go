package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "searches_total", Help: "Total number of ride searches"})
	SearchLatency      = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "carpool_search", Name: "search_latency_seconds", Help: "Phase 1 search latency seconds"})
	RefinementsTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "refinements_total", Help: "Total Phase 2 refinement passes"})
	RefinementsStale   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "refinements_stale_total", Help: "Refinement passes discarded as stale"})
	RouteLookupErrors  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "route_lookup_errors_total", Help: "Routing collaborator failures"})
	GeocodeFailures    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "geocode_failures_total", Help: "Geocoding collaborator failures"})
	BookingsTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "bookings_total", Help: "Total bookings created"})
	PaymentHoldsFailed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool_search", Name: "payment_holds_failed_total", Help: "Payment hold failures"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool_search", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool_search",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
