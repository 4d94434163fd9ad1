// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FeedCacheRequests counts index cache lookups by result (hit, miss, error).
	FeedCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_feed_cache_requests_total",
		Help: "Index feed cache lookups by result",
	}, []string{"result"})

	// FeedCacheClears counts explicit invalidations of the index feed cache.
	FeedCacheClears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_feed_cache_clears_total",
		Help: "Total number of manual feed cache clears",
	})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostMutations counts successful post mutations by kind.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_mutations_total",
		Help: "Total number of post mutations by kind",
	}, []string{"kind"})
)

// Feed cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
