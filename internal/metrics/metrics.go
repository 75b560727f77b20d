// Package metrics exposes the node's prometheus counters (ambient
// observability, not a spec.md module in its own right). The controller
// increments these as it processes transactions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter the node exports. Registry is exposed so a
// caller can additionally wire promhttp.HandlerFor against it.
type Metrics struct {
	Registry *prometheus.Registry

	TxsAttached   prometheus.Counter
	TxsRejected   prometheus.Counter
	PeersBanned   prometheus.Counter
	ReorgsHandled prometheus.Counter
}

// New builds and registers a fresh Metrics set against its own registry, so
// multiple node instances in the same process (as in tests) never collide
// on the default global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		TxsAttached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_txs_attached_total",
			Help: "Total number of transactions attached by the graph builder/controller.",
		}),
		TxsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_txs_rejected_total",
			Help: "Total number of transactions rejected by the checker or graph builder.",
		}),
		PeersBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_peers_banned_total",
			Help: "Total number of peers banned for submitting invalid transactions.",
		}),
		ReorgsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_reorgs_handled_total",
			Help: "Total number of chain reorganizations processed by the controller.",
		}),
	}

	reg.MustRegister(m.TxsAttached, m.TxsRejected, m.PeersBanned, m.ReorgsHandled)
	return m
}
