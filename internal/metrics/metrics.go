package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsync_http_requests_total",
			Help: "Total number of BFF HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travelsync_http_request_duration_seconds",
			Help:    "BFF HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsync_cache_lookups_total",
			Help: "Request cache lookups by result (hit, miss, coalesced, error)",
		},
		[]string{"result"},
	)

	FavoriteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsync_favorite_toggles_total",
			Help: "Favorite toggles by kind and outcome (committed, rolled_back, unauthenticated)",
		},
		[]string{"kind", "outcome"},
	)

	PaymentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsync_payment_transitions_total",
			Help: "Payment lifecycle transitions by target state",
		},
		[]string{"state"},
	)

	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsync_remote_requests_total",
			Help: "Requests to the storefront API by operation and error kind (empty when ok)",
		},
		[]string{"op", "error_kind"},
	)

	RegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "travelsync_registry_bookings",
			Help: "Bookings currently held by the booking registry",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

func RecordFavoriteToggle(kind, outcome string) {
	FavoriteTogglesTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordPaymentTransition(state string) {
	PaymentTransitionsTotal.WithLabelValues(state).Inc()
}

func RecordRemoteRequest(op, errorKind string) {
	RemoteRequestsTotal.WithLabelValues(op, errorKind).Inc()
}

func SetRegistrySize(n int) {
	RegistrySize.Set(float64(n))
}
