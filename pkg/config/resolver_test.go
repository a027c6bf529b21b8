package config

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/rdmashuffle/pkg/shuffleerrors"
)

// countingStore counts integer reads so tests can assert exactly-once
// resolution.
type countingStore struct {
	*MapStore
	getIntCalls atomic.Int64
}

func (s *countingStore) GetInt(key string, def int) (int, error) {
	s.getIntCalls.Add(1)
	return s.MapStore.GetInt(key, def)
}

func newConf(values map[string]string) *TransportConf {
	return NewTransportConf(NewMapStoreFrom(values))
}

func TestTransportConf_IntInRange(t *testing.T) {
	conf := newConf(map[string]string{"shuffle.rdma.recvQueueDepth": "2048"})
	defer conf.Close()

	depth, err := conf.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 2048, depth)
	assert.Empty(t, conf.FallbackEvents())
}

func TestTransportConf_IntBelowMinFallsBack(t *testing.T) {
	conf := newConf(map[string]string{"shuffle.rdma.recvQueueDepth": "100"})
	defer conf.Close()

	depth, err := conf.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1024, depth)

	events := conf.FallbackEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "recvQueueDepth", events[0].Parameter)
	assert.Equal(t, "100", events[0].Configured)
	assert.Equal(t, "1024", events[0].Effective)
}

func TestTransportConf_IntAboveMaxFallsBack(t *testing.T) {
	conf := newConf(map[string]string{"shuffle.rdma.sendQueueDepth": "100000"})
	defer conf.Close()

	depth, err := conf.SendQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 4096, depth)
}

func TestTransportConf_IntUnsetUsesDefault(t *testing.T) {
	conf := newConf(nil)
	defer conf.Close()

	depth, err := conf.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1024, depth)
	assert.Empty(t, conf.FallbackEvents())
}

func TestTransportConf_BoundaryValuesAreInRange(t *testing.T) {
	// Bounds are inclusive: min and max themselves resolve verbatim.
	for raw, expected := range map[string]int{"256": 256, "65535": 65535} {
		conf := newConf(map[string]string{"shuffle.rdma.recvQueueDepth": raw})
		depth, err := conf.RecvQueueDepth()
		require.NoError(t, err)
		assert.Equal(t, expected, depth)
		assert.Empty(t, conf.FallbackEvents())
		conf.Close()
	}
}

func TestTransportConf_MalformedIntPropagates(t *testing.T) {
	conf := newConf(map[string]string{"shuffle.rdma.recvQueueDepth": "banana"})
	defer conf.Close()

	_, err := conf.RecvQueueDepth()
	require.Error(t, err)
	assert.True(t, shuffleerrors.IsType(err, shuffleerrors.ErrorTypeValidation))

	// The error outcome is memoized like any other resolution.
	_, second := conf.RecvQueueDepth()
	assert.Equal(t, err, second)
}

func TestTransportConf_ByteSizeInRange(t *testing.T) {
	conf := newConf(map[string]string{"shuffle.rdma.recvWorkRequestSize": "64k"})
	defer conf.Close()

	size, err := conf.RecvWorkRequestSize()
	require.NoError(t, err)
	assert.Equal(t, int64(64*1024), size)
}

func TestTransportConf_ByteSizeCaseInsensitive(t *testing.T) {
	lower := newConf(map[string]string{"shuffle.rdma.shuffleWriteBlockSize": "8m"})
	defer lower.Close()
	upper := newConf(map[string]string{"shuffle.rdma.shuffleWriteBlockSize": "8M"})
	defer upper.Close()

	lv, err := lower.ShuffleWriteBlockSize()
	require.NoError(t, err)
	uv, err := upper.ShuffleWriteBlockSize()
	require.NoError(t, err)
	assert.Equal(t, lv, uv)
	assert.Equal(t, int64(8*1024*1024), lv)
}

func TestTransportConf_ByteSizeOutOfRangeFallsBack(t *testing.T) {
	conf := newConf(map[string]string{"shuffle.rdma.recvWorkRequestSize": "1k"})
	defer conf.Close()

	size, err := conf.RecvWorkRequestSize()
	require.NoError(t, err)
	assert.Equal(t, int64(4*1024), size) // "4k" default

	events := conf.FallbackEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "recvWorkRequestSize", events[0].Parameter)
}

func TestTransportConf_CachedAcrossStoreMutation(t *testing.T) {
	store := NewMapStoreFrom(map[string]string{"shuffle.rdma.recvQueueDepth": "2048"})
	conf := NewTransportConf(store)
	defer conf.Close()

	first, err := conf.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 2048, first)

	store.Set("shuffle.rdma.recvQueueDepth", "4096")

	second, err := conf.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh resolver over the same store sees the new value.
	fresh := NewTransportConf(store)
	defer fresh.Close()
	v, err := fresh.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 4096, v)
}

func TestTransportConf_ConcurrentFirstAccess(t *testing.T) {
	store := &countingStore{
		MapStore: NewMapStoreFrom(map[string]string{"shuffle.rdma.recvQueueDepth": "2048"}),
	}
	conf := NewTransportConf(store)
	defer conf.Close()

	const goroutines = 32
	results := make([]int, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := conf.RecvQueueDepth()
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 2048, v)
	}
	assert.Equal(t, int64(1), store.getIntCalls.Load(),
		"underlying store must be read exactly once")
}

func TestTransportConf_Booleans(t *testing.T) {
	conf := newConf(nil)
	defer conf.Close()

	flow, err := conf.SoftwareFlowControl()
	require.NoError(t, err)
	assert.True(t, flow)

	stats, err := conf.CollectShuffleReaderStats()
	require.NoError(t, err)
	assert.False(t, stats)

	overridden := newConf(map[string]string{
		"shuffle.rdma.swFlowControl":             "false",
		"shuffle.rdma.collectShuffleReaderStats": "true",
	})
	defer overridden.Close()

	flow, err = overridden.SoftwareFlowControl()
	require.NoError(t, err)
	assert.False(t, flow)

	stats, err = overridden.CollectShuffleReaderStats()
	require.NoError(t, err)
	assert.True(t, stats)
}

func TestTransportConf_CPUList(t *testing.T) {
	conf := newConf(nil)
	defer conf.Close()
	assert.Equal(t, "", conf.CPUList())

	pinned := newConf(map[string]string{"shuffle.rdma.cpuList": "0-3,8-11"})
	defer pinned.Close()
	assert.Equal(t, "0-3,8-11", pinned.CPUList())
}

func TestTransportConf_Timeouts(t *testing.T) {
	conf := newConf(map[string]string{
		"shuffle.rdma.partitionLocationFetchTimeout": "30000",
		"shuffle.rdma.connectionEventTimeout":        "50", // below min 100
	})
	defer conf.Close()

	fetch, err := conf.PartitionLocationFetchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, fetch)

	event, err := conf.ConnectionEventTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Second, event) // default 1000ms
}

func TestTransportConf_PassthroughKeys(t *testing.T) {
	conf := newConf(map[string]string{
		"driver.host":     "10.0.0.5",
		"port.maxRetries": "32",
	})
	defer conf.Close()

	assert.Equal(t, "10.0.0.5", conf.DriverHost())

	retries, err := conf.PortMaxRetries()
	require.NoError(t, err)
	assert.Equal(t, 32, retries)
}

func TestTransportConf_PassthroughDefaults(t *testing.T) {
	conf := newConf(nil)
	defer conf.Close()

	assert.Equal(t, "0.0.0.0", conf.DriverHost())

	retries, err := conf.PortMaxRetries()
	require.NoError(t, err)
	assert.Equal(t, 16, retries)
}

func TestTransportConf_PrefixedKeysDoNotLeak(t *testing.T) {
	// A transport-prefixed driver.host must not satisfy the global lookup.
	conf := newConf(map[string]string{"shuffle.rdma.driver.host": "10.9.9.9"})
	defer conf.Close()
	assert.Equal(t, "0.0.0.0", conf.DriverHost())
}

func TestTransportConf_SetDriverPort(t *testing.T) {
	store := NewMapStore()
	conf := NewTransportConf(store)
	defer conf.Close()

	// Resolve before publishing: cache pins the pre-publication value.
	port, err := conf.DriverPort()
	require.NoError(t, err)
	assert.Equal(t, 0, port)

	conf.SetDriverPort(43721)
	assert.Equal(t, "43721", store.Get("shuffle.rdma.driverPort", ""))

	// The publishing resolver keeps its cached resolution.
	port, err = conf.DriverPort()
	require.NoError(t, err)
	assert.Equal(t, 0, port)

	// Resolvers created after publication observe the bound port.
	fresh := NewTransportConf(store)
	defer fresh.Close()
	port, err = fresh.DriverPort()
	require.NoError(t, err)
	assert.Equal(t, 43721, port)
}

func TestTransportConf_SnapshotDefaults(t *testing.T) {
	conf := newConf(nil)
	defer conf.Close()

	s, err := conf.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 1024, s.RecvQueueDepth)
	assert.Equal(t, 4096, s.SendQueueDepth)
	assert.Equal(t, int64(4*1024), s.RecvWorkRequestSize)
	assert.True(t, s.SoftwareFlowControl)
	assert.Equal(t, "", s.CPUList)
	assert.Equal(t, int64(8*1024*1024), s.ShuffleWriteBlockSize)
	assert.Equal(t, int64(256*1024), s.ShuffleReadBlockSize)
	assert.Equal(t, int64(48*1024*1024), s.MaxBytesInFlight)
	assert.Equal(t, int64(2*1024*1024), s.AggregationBlockSize)
	assert.Equal(t, 0, s.PreAllocateAggregationBuffers)
	assert.False(t, s.CollectShuffleReaderStats)
	assert.Equal(t, int64(120000), s.PartitionLocationFetchTimeoutMs)
	assert.Equal(t, int64(300), s.FetchTimeBucketSizeMs)
	assert.Equal(t, 10, s.FetchTimeBucketCount)
	assert.Equal(t, "0.0.0.0", s.DriverHost)
	assert.Equal(t, 0, s.DriverPort)
	assert.Equal(t, 0, s.ExecutorPort)
	assert.Equal(t, 16, s.PortMaxRetries)
	assert.Equal(t, int64(1000), s.ConnectionEventTimeoutMs)
	assert.Equal(t, int64(2000), s.TeardownListenTimeoutMs)
	assert.Equal(t, int64(2000), s.PathResolutionTimeoutMs)
	assert.Equal(t, 5, s.MaxConnectionAttempts)

	// Defaults must never trip their own bounds.
	assert.Empty(t, s.Fallbacks)
}

func TestTransportConf_ReceiveQueueDepthScenario(t *testing.T) {
	// Below min resolves to the default.
	low := newConf(map[string]string{"shuffle.rdma.recvQueueDepth": "100"})
	defer low.Close()
	v, err := low.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1024, v)

	// In range resolves to the configured value.
	mid := newConf(map[string]string{"shuffle.rdma.recvQueueDepth": "2048"})
	defer mid.Close()
	v, err = mid.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 2048, v)

	// Unset resolves to the default.
	unset := newConf(nil)
	defer unset.Close()
	v, err = unset.RecvQueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1024, v)
}
