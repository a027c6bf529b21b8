// Package rdmashuffle is the configuration-resolution subsystem of a
// pluggable, high-performance RDMA shuffle transport that attaches to a
// distributed data-processing framework.
//
// The transport's data plane (connection setup, memory registration, block
// transfer, flow control) lives with the host system. This module owns the
// two things every part of that data plane depends on before it can start:
//
// 1. The version gate: the host framework's runtime version is validated
// once per process against the supported major version line. An unparseable
// or unsupported version is a fatal configuration error raised before any
// transport code activates.
//
// 2. The tunable catalogue: a fixed set of queue depths, buffer sizes,
// byte-size thresholds, and timeouts resolved from the host framework's
// generic key-value configuration with type coercion, namespacing, range
// validation, and safe fallback to defaults.
//
// # Packages
//
//   - pkg/config: the version gate, the Store abstraction over the host's
//     key-value configuration, and the TransportConf resolver with its
//     memoized, bounds-checked accessor catalogue.
//   - pkg/shuffleerrors: structured, categorized errors with stack capture.
//   - pkg/logger: structured zap logging.
//   - pkg/metrics: Prometheus metrics, including out-of-range fallback
//     counters that make the silent-default policy observable.
//   - cmd/rdmashuffle: CLI for validating host compatibility and dumping
//     the resolved catalogue.
//
// # Quick Start
//
//	import "github.com/flowmesh/rdmashuffle/pkg/config"
//
//	if _, err := config.CheckHostVersion(hostVersion); err != nil {
//	    return err // fatal: transport must not activate
//	}
//
//	conf := config.NewTransportConf(store)
//	defer conf.Close()
//
//	depth, err := conf.RecvQueueDepth()
package rdmashuffle
