// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	authDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saleorauth_auth_decisions_total",
		Help: "Middleware auth decisions by stage and outcome.",
	}, []string{"stage", "outcome"})

	storeOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saleorauth_store_operations_total",
		Help: "APL operations by backend, operation and status.",
	}, []string{"backend", "op", "status"})
)

func init() {
	prometheus.MustRegister(authDecisions, storeOps)
}

// AuthDecision records one middleware decision, e.g. ("resolver", "not_found")
// or ("validator", "trusted").
func AuthDecision(stage, outcome string) {
	authDecisions.WithLabelValues(stage, outcome).Inc()
}

// StoreOp records one APL write-path operation result.
func StoreOp(backend, op string, ok bool) {
	status := "ok"
	if !ok {
		status = "fail"
	}
	storeOps.WithLabelValues(backend, op, status).Inc()
}
