package config

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowmesh/rdmashuffle/pkg/logger"
	"github.com/flowmesh/rdmashuffle/pkg/metrics"
)

// ConfPrefix namespaces every transport tunable inside the host
// framework's shared configuration.
const ConfPrefix = "shuffle.rdma."

// Host framework global keys read unprefixed. These must agree with
// non-transport components, so the resolver passes them through verbatim.
const (
	driverHostKey     = "driver.host"
	portMaxRetriesKey = "port.maxRetries"
)

// FallbackEvent records one out-of-range resolution where the configured
// value was silently replaced by the parameter default.
type FallbackEvent struct {
	Parameter  string `json:"parameter"`
	Configured string `json:"configured"`
	Effective  string `json:"effective"`
}

// TransportConf resolves the closed catalogue of transport tunables from a
// Store. Construct one per shuffle session context and discard it with the
// context; cached resolutions die with the instance.
//
// Every accessor resolves its parameter at most once per instance and
// returns the cached outcome afterwards, even when the underlying store is
// mutated in between and even under concurrent first access from multiple
// goroutines.
type TransportConf struct {
	store Store

	mu        sync.Mutex
	fallbacks []FallbackEvent

	recvQueueDepth          func() (int, error)
	sendQueueDepth          func() (int, error)
	recvWorkRequestSize     func() (int64, error)
	swFlowControl           func() (bool, error)
	cpuList                 func() string
	shuffleWriteBlockSize   func() (int64, error)
	shuffleReadBlockSize    func() (int64, error)
	maxBytesInFlight        func() (int64, error)
	aggregationBlockSize    func() (int64, error)
	preAllocateAggBuffers   func() (int, error)
	collectReaderStats      func() (bool, error)
	partitionFetchTimeout   func() (time.Duration, error)
	fetchTimeBucketSize     func() (time.Duration, error)
	fetchTimeBucketCount    func() (int, error)
	driverPort              func() (int, error)
	executorPort            func() (int, error)
	connectionEventTimeout  func() (time.Duration, error)
	teardownListenTimeout   func() (time.Duration, error)
	pathResolutionTimeout   func() (time.Duration, error)
	maxConnectionAttempts   func() (int, error)
	driverHost              func() string
	portMaxRetries          func() (int, error)
}

// NewTransportConf wraps a Store in a resolver. The store stays owned by
// the caller and is treated as read-mostly; the only write this resolver
// ever performs is SetDriverPort.
func NewTransportConf(store Store) *TransportConf {
	c := &TransportConf{store: store}

	// The catalogue. One memoized cell per parameter; defaults and bounds
	// are fixed here at compile time.
	c.recvQueueDepth = sync.OnceValues(func() (int, error) {
		return c.intInRange("recvQueueDepth", 1024, 256, 65535)
	})
	c.sendQueueDepth = sync.OnceValues(func() (int, error) {
		return c.intInRange("sendQueueDepth", 4096, 256, 65535)
	})
	c.recvWorkRequestSize = sync.OnceValues(func() (int64, error) {
		return c.bytesInRange("recvWorkRequestSize", "4k", "2k", "1m")
	})
	c.swFlowControl = sync.OnceValues(func() (bool, error) {
		return c.store.GetBool(ConfPrefix+"swFlowControl", true)
	})
	c.cpuList = sync.OnceValue(func() string {
		return c.store.Get(ConfPrefix+"cpuList", "")
	})
	c.shuffleWriteBlockSize = sync.OnceValues(func() (int64, error) {
		return c.bytesInRange("shuffleWriteBlockSize", "8m", "64k", "1g")
	})
	c.shuffleReadBlockSize = sync.OnceValues(func() (int64, error) {
		return c.bytesInRange("shuffleReadBlockSize", "256k", "16k", "512m")
	})
	c.maxBytesInFlight = sync.OnceValues(func() (int64, error) {
		return c.bytesInRange("maxBytesInFlight", "48m", "1m", "8g")
	})
	c.aggregationBlockSize = sync.OnceValues(func() (int64, error) {
		return c.bytesInRange("aggregationBlockSize", "2m", "128k", "1g")
	})
	c.preAllocateAggBuffers = sync.OnceValues(func() (int, error) {
		return c.intInRange("preAllocateAggregationBuffers", 0, 0, 16384)
	})
	c.collectReaderStats = sync.OnceValues(func() (bool, error) {
		return c.store.GetBool(ConfPrefix+"collectShuffleReaderStats", false)
	})
	c.partitionFetchTimeout = sync.OnceValues(func() (time.Duration, error) {
		return c.millisInRange("partitionLocationFetchTimeout", 120000, 1000, 3600000)
	})
	c.fetchTimeBucketSize = sync.OnceValues(func() (time.Duration, error) {
		return c.millisInRange("fetchTimeBucketSizeMillis", 300, 1, 60000)
	})
	c.fetchTimeBucketCount = sync.OnceValues(func() (int, error) {
		return c.intInRange("fetchTimeBucketCount", 10, 1, 1000)
	})
	c.driverPort = sync.OnceValues(func() (int, error) {
		return c.intInRange("driverPort", 0, 0, 65535)
	})
	c.executorPort = sync.OnceValues(func() (int, error) {
		return c.intInRange("executorPort", 0, 0, 65535)
	})
	c.connectionEventTimeout = sync.OnceValues(func() (time.Duration, error) {
		return c.millisInRange("connectionEventTimeout", 1000, 100, 600000)
	})
	c.teardownListenTimeout = sync.OnceValues(func() (time.Duration, error) {
		return c.millisInRange("teardownListenTimeout", 2000, 100, 600000)
	})
	c.pathResolutionTimeout = sync.OnceValues(func() (time.Duration, error) {
		return c.millisInRange("pathResolutionTimeout", 2000, 100, 600000)
	})
	c.maxConnectionAttempts = sync.OnceValues(func() (int, error) {
		return c.intInRange("maxConnectionAttempts", 5, 1, 100)
	})
	c.driverHost = sync.OnceValue(func() string {
		return c.store.Get(driverHostKey, "0.0.0.0")
	})
	c.portMaxRetries = sync.OnceValues(func() (int, error) {
		return c.rawIntInRange(portMaxRetriesKey, 16, 0, 1000)
	})

	metrics.ActiveResolvers.Inc()
	return c
}

// Close releases the resolver's metrics footprint. The resolver must not
// be used after Close.
func (c *TransportConf) Close() {
	metrics.ActiveResolvers.Dec()
}

// intInRange resolves a prefixed integer tunable. Malformed text surfaces
// as the store's coercion error; a well-formed value outside [min, max]
// resolves to def.
func (c *TransportConf) intInRange(name string, def, min, max int) (int, error) {
	v, err := c.store.GetInt(ConfPrefix+name, def)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		c.recordFallback(name, strconv.Itoa(v), strconv.Itoa(def))
		return def, nil
	}
	return v, nil
}

// rawIntInRange is intInRange without the namespace prefix, for host
// framework global keys.
func (c *TransportConf) rawIntInRange(key string, def, min, max int) (int, error) {
	v, err := c.store.GetInt(key, def)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		c.recordFallback(key, strconv.Itoa(v), strconv.Itoa(def))
		return def, nil
	}
	return v, nil
}

// bytesInRange resolves a prefixed byte-size tunable. The default and both
// bounds are byte-size strings parsed with the same convention as the
// configured value.
func (c *TransportConf) bytesInRange(name, def, minStr, maxStr string) (int64, error) {
	minV, err := ParseByteString(minStr)
	if err != nil {
		return 0, err
	}
	maxV, err := ParseByteString(maxStr)
	if err != nil {
		return 0, err
	}
	defV, err := ParseByteString(def)
	if err != nil {
		return 0, err
	}

	v, err := c.store.GetSizeAsBytes(ConfPrefix+name, def)
	if err != nil {
		return 0, err
	}
	if v < minV || v > maxV {
		c.recordFallback(name, strconv.FormatInt(v, 10), strconv.FormatInt(defV, 10))
		return defV, nil
	}
	return v, nil
}

// millisInRange resolves an integer-milliseconds tunable into a Duration.
func (c *TransportConf) millisInRange(name string, def, min, max int) (time.Duration, error) {
	v, err := c.intInRange(name, def, min, max)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Millisecond, nil
}

func (c *TransportConf) recordFallback(name, configured, effective string) {
	c.mu.Lock()
	c.fallbacks = append(c.fallbacks, FallbackEvent{
		Parameter:  name,
		Configured: configured,
		Effective:  effective,
	})
	c.mu.Unlock()

	metrics.ConfigFallbacks.WithLabelValues(name).Inc()
	logger.Debug("tunable out of range, reverting to default",
		zap.String("parameter", name),
		zap.String("configured", configured),
		zap.String("effective", effective))
}

// FallbackEvents returns the out-of-range fallbacks recorded so far by this
// resolver instance, in resolution order.
func (c *TransportConf) FallbackEvents() []FallbackEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FallbackEvent, len(c.fallbacks))
	copy(out, c.fallbacks)
	return out
}

// RecvQueueDepth is the receive completion queue depth per endpoint.
func (c *TransportConf) RecvQueueDepth() (int, error) {
	return c.recvQueueDepth()
}

// SendQueueDepth is the send completion queue depth per endpoint.
func (c *TransportConf) SendQueueDepth() (int, error) {
	return c.sendQueueDepth()
}

// RecvWorkRequestSize is the buffer size in bytes posted per receive work
// request.
func (c *TransportConf) RecvWorkRequestSize() (int64, error) {
	return c.recvWorkRequestSize()
}

// SoftwareFlowControl reports whether software-level flow control is
// enabled on top of the hardware transport.
func (c *TransportConf) SoftwareFlowControl() (bool, error) {
	return c.swFlowControl()
}

// CPUList is the raw CPU affinity list for progress threads. Empty means
// no pinning; the format is passed through to the transport runtime
// unvalidated.
func (c *TransportConf) CPUList() string {
	return c.cpuList()
}

// ShuffleWriteBlockSize is the block size in bytes for shuffle writes.
func (c *TransportConf) ShuffleWriteBlockSize() (int64, error) {
	return c.shuffleWriteBlockSize()
}

// ShuffleReadBlockSize is the block size in bytes for shuffle reads.
func (c *TransportConf) ShuffleReadBlockSize() (int64, error) {
	return c.shuffleReadBlockSize()
}

// MaxBytesInFlight caps the bytes outstanding on the wire per reader.
func (c *TransportConf) MaxBytesInFlight() (int64, error) {
	return c.maxBytesInFlight()
}

// AggregationBlockSize is the block size in bytes for reducer-side
// aggregation buffers.
func (c *TransportConf) AggregationBlockSize() (int64, error) {
	return c.aggregationBlockSize()
}

// PreAllocateAggregationBuffers is the number of aggregation buffers to
// allocate up front. Zero disables preallocation.
func (c *TransportConf) PreAllocateAggregationBuffers() (int, error) {
	return c.preAllocateAggBuffers()
}

// CollectShuffleReaderStats reports whether reader-side latency statistics
// collection is enabled.
func (c *TransportConf) CollectShuffleReaderStats() (bool, error) {
	return c.collectReaderStats()
}

// PartitionLocationFetchTimeout bounds how long a reader waits for
// partition location metadata from the driver.
func (c *TransportConf) PartitionLocationFetchTimeout() (time.Duration, error) {
	return c.partitionFetchTimeout()
}

// FetchTimeBucketSize is the width of one reader statistics histogram
// bucket.
func (c *TransportConf) FetchTimeBucketSize() (time.Duration, error) {
	return c.fetchTimeBucketSize()
}

// FetchTimeBucketCount is the number of reader statistics histogram
// buckets.
func (c *TransportConf) FetchTimeBucketCount() (int, error) {
	return c.fetchTimeBucketCount()
}

// DriverPort is the port the driver-side endpoint listens on. Zero lets
// the driver bind an ephemeral port and publish it via SetDriverPort.
func (c *TransportConf) DriverPort() (int, error) {
	return c.driverPort()
}

// ExecutorPort is the port executor-side endpoints listen on. Zero means
// ephemeral.
func (c *TransportConf) ExecutorPort() (int, error) {
	return c.executorPort()
}

// ConnectionEventTimeout bounds waits on connection manager events.
func (c *TransportConf) ConnectionEventTimeout() (time.Duration, error) {
	return c.connectionEventTimeout()
}

// TeardownListenTimeout bounds how long the listener lingers during
// teardown to drain peers.
func (c *TransportConf) TeardownListenTimeout() (time.Duration, error) {
	return c.teardownListenTimeout()
}

// PathResolutionTimeout bounds address and route resolution when opening
// a connection.
func (c *TransportConf) PathResolutionTimeout() (time.Duration, error) {
	return c.pathResolutionTimeout()
}

// MaxConnectionAttempts caps connection establishment retries performed by
// the connection manager.
func (c *TransportConf) MaxConnectionAttempts() (int, error) {
	return c.maxConnectionAttempts()
}

// DriverHost is the host framework's driver address, read from the shared
// global key rather than the transport namespace.
func (c *TransportConf) DriverHost() string {
	return c.driverHost()
}

// PortMaxRetries is the host framework's shared port-retry policy, read
// from the global key so transport listeners honor the same policy as
// everything else.
func (c *TransportConf) PortMaxRetries() (int, error) {
	return c.portMaxRetries()
}

// SetDriverPort publishes the locally bound driver port back into the
// shared store so downstream consumers can address the driver endpoint.
// It does not touch this instance's cache: a resolver that already
// resolved DriverPort keeps its first outcome, while resolvers created
// afterwards observe the published port. The host is responsible for
// serializing this write.
func (c *TransportConf) SetDriverPort(port int) {
	c.store.Set(ConfPrefix+"driverPort", strconv.Itoa(port))
}
