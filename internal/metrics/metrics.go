// Package metrics holds the Prometheus collectors shared by the server and the
// match engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshimatch"

var (
	// RPCRequests counts handled RPCs by procedure and Connect code ("ok" on success).
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Group store RPCs handled, by procedure and result code.",
	}, []string{"procedure", "code"})

	// RPCDuration observes handler latency by procedure.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "Group store RPC latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure"})

	// ActiveWatchers is the number of open WatchGroup streams.
	ActiveWatchers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_group_watchers",
		Help:      "Open WatchGroup streams.",
	})

	// LedgerSyncs counts debounced ledger writes by result ("ok" or "error").
	LedgerSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_syncs_total",
		Help:      "Debounced ledger writes to the remote store, by result.",
	}, []string{"result"})

	// LikesRecorded counts like/unlike mutations that changed a ledger.
	LikesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_mutations_total",
		Help:      "Ledger mutations applied locally, by action.",
	}, []string{"action"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
