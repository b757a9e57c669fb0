// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// PostMutations counts successful post writes by operation.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_mutations_total",
		Help: "Total number of post create/update/delete operations",
	}, []string{"operation"})

	// CoverBytesStored counts bytes written to the cover upload directory.
	CoverBytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_cover_bytes_stored_total",
		Help: "Total bytes of cover images written to disk",
	})

	// CoverFilesRemoved counts cover files removed from disk.
	CoverFilesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_cover_files_removed_total",
		Help: "Total number of cover files removed from disk",
	})

	// FeedConnections is the gauge of live feed websocket connections.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_feed_connections",
		Help: "Number of active live feed websocket connections",
	})

	// FeedBackpressureDrops counts feed messages dropped due to backpressure.
	FeedBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_feed_backpressure_drops_total",
		Help: "Total number of feed messages dropped due to backpressure",
	}, []string{"reason"})
)
