package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bbs_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bbs_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostViews counts view decisions by dedup mode and outcome (counted or skipped).
	PostViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bbs_post_views_total",
		Help: "Post detail views by dedup mode and outcome",
	}, []string{"mode", "outcome"})

	// LikeToggles counts like toggles by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bbs_like_toggles_total",
		Help: "Like toggles by resulting state",
	}, []string{"state"})

	// PermissionDenials counts author-only mutations refused by resource type.
	PermissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bbs_permission_denials_total",
		Help: "Refused author-only mutations by resource",
	}, []string{"resource"})

	// RateLimited counts requests refused by the write throttle.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bbs_rate_limited_total",
		Help: "Requests refused by the rate limiter by resource",
	}, []string{"resource"})

	// MessagesSent counts private messages delivered.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bbs_messages_sent_total",
		Help: "Total number of private messages sent",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
