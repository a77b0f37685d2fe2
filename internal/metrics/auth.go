package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Auth-related Prometheus metrics. Standalone package to avoid import cycles
// between the auth service and HTTP packages.

var (
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soul_auth_logins_total",
		Help: "Logins por tipo (direct|platform|exchange) y resultado (ok|denied|error)",
	}, []string{"kind", "result"})

	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soul_auth_refreshes_total",
		Help: "Refresh de tokens por resultado (ok|denied|error)",
	}, []string{"result"})

	CodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soul_auth_codes_issued_total",
		Help: "Authorization codes emitidos",
	})

	TokensSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soul_auth_tokens_swept_total",
		Help: "Refresh tokens borrados por el sweep",
	})
)

// RegisterAuth registers the auth metrics on the given registry (or default if nil).
func RegisterAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{Logins, Refreshes, CodesIssued, TokensSwept} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
