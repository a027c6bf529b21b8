// Package config implements configuration resolution for the RDMA shuffle
// transport plugin. It is the single place where tunables are read, coerced,
// namespaced, bounds-checked, and cached; every other component of the
// transport layer consumes values produced here.
//
// The package has two responsibilities:
//
// 1. The version gate: confirm, once per process, that the host framework's
// runtime version names the supported major version line before any
// transport code activates. See CheckHostVersion.
//
// 2. The resolver: TransportConf wraps a generic key-value Store owned by
// the host framework and exposes one typed accessor per catalogued tunable
// (queue depths, block sizes, timeouts, toggles). Each accessor resolves at
// most once per TransportConf instance and caches the result for the
// instance's lifetime, even under concurrent first access.
//
// # Resolution rules
//
//   - Transport tunables resolve under the "shuffle.rdma." prefix. A small
//     set of addressing parameters (driver host, shared port-retry policy)
//     read the host framework's own global keys unprefixed, because they
//     must agree with non-transport components.
//   - A value that cannot be coerced to the declared type at all surfaces
//     as an error from the accessor, exactly as the store produced it.
//   - A well-formed value outside the declared [min, max] bounds is not an
//     error: the accessor returns the parameter default. The fallback is
//     recorded in FallbackEvents, a debug log line, and a Prometheus
//     counter, but callers see only the effective value.
//
// # Example
//
//	store := config.NewMapStore()
//	store.Set("shuffle.rdma.recvQueueDepth", "2048")
//
//	conf := config.NewTransportConf(store)
//	defer conf.Close()
//
//	depth, err := conf.RecvQueueDepth() // 2048
package config
