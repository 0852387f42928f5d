// Package metrics holds the process-wide Prometheus collectors for the
// fact store, the query planner and observers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification kinds.
const (
	KindAdded   = "added"
	KindRemoved = "removed"
)

var (
	// FactsSaved counts facts newly persisted by a store.
	FactsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factdb_store_facts_saved_total",
		Help: "Total facts newly persisted by a store",
	})

	// FollowCalls counts store round trips issued by the planner.
	FollowCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factdb_planner_follow_calls_total",
		Help: "Total store walks issued by the query planner",
	})

	// ShortCircuits counts sub-plans answered without a store call
	// because a type or role is unknown to the store.
	ShortCircuits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factdb_planner_short_circuits_total",
		Help: "Total sub-plans answered empty without a store round trip",
	})

	// QueryDuration tracks end-to-end query latency.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "factdb_planner_query_duration_seconds",
		Help:    "Query execution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})

	// Notifications counts observer callbacks by kind.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factdb_observer_notifications_total",
		Help: "Total observer notifications by kind",
	}, []string{"kind"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
