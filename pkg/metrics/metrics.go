// Package metrics provides Prometheus metrics for the shuffle transport
// plugin's configuration subsystem.
//
// The resolver deliberately never fails on an out-of-range tunable; it
// reverts to the parameter default instead. These metrics make that policy
// observable so operators can tell a silently-ignored setting apart from an
// absent one.
//
// # Basic Usage
//
//	// Record an out-of-range fallback
//	metrics.ConfigFallbacks.WithLabelValues("recvQueueDepth").Inc()
//
//	// Record a host-version gate outcome
//	metrics.VersionChecks.WithLabelValues("ok").Inc()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfigFallbacks counts resolutions where a configured value was
	// out of its declared bounds and the parameter default was used.
	// Labels: parameter (catalogue name without the namespace prefix)
	ConfigFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdmashuffle_config_fallbacks_total",
			Help: "Total number of out-of-range tunables replaced by their defaults",
		},
		[]string{"parameter"},
	)

	// VersionChecks counts host framework version gate outcomes.
	// Labels: outcome (ok/unsupported/unparseable)
	VersionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdmashuffle_version_checks_total",
			Help: "Total number of host framework version checks by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveResolvers tracks live configuration resolver instances,
	// one per shuffle session context.
	ActiveResolvers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rdmashuffle_active_resolvers",
			Help: "Number of live configuration resolver instances",
		},
	)
)
