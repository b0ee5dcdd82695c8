// Package metrics exposes Prometheus counters for account lifecycle
// operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accounts"

var (
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Registration attempts by result.",
	}, []string{"result"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_changes_total",
		Help:      "Accounts moved to a status.",
	}, []string{"status"})

	Deleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deleted_total",
		Help:      "Accounts physically removed, by reason.",
	}, []string{"reason"})

	Unauthorized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unauthorized_total",
		Help:      "Requests rejected by the session guard.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
