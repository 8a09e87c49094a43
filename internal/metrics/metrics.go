// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieapp_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movieapp_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movieapp_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	RatingRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieapp_rating_recomputations_total",
			Help: "Movie rating recomputations by result",
		},
		[]string{"result"}, // "ok", "skipped", "error"
	)

	TMDBRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieapp_tmdb_requests_total",
			Help: "Requests sent to the TMDB API by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieapp_cache_operations_total",
			Help: "Cache lookups and writes by operation and result",
		},
		[]string{"operation", "result"},
	)

	RateLimitedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieapp_rate_limited_requests_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordRatingRecompute(result string) {
	RatingRecomputations.WithLabelValues(result).Inc()
}

func RecordTMDBRequest(endpoint string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	TMDBRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordCacheOp counts a cache operation; result is "hit", "miss", "ok" or "error".
func RecordCacheOp(operation, result string) {
	CacheOperations.WithLabelValues(operation, result).Inc()
}
