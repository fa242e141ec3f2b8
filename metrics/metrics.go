// Package metrics exposes the service's prometheus instrumentation
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsPrepared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garuda_logins_prepared_total",
		Help: "Sign-in messages prepared",
	})

	LoginsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garuda_logins_completed_total",
		Help: "Logins completed successfully",
	})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garuda_login_failures_total",
		Help: "Logins rejected at any stage",
	})

	DelegationsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garuda_delegations_fetched_total",
		Help: "Signed delegations served",
	})
)
