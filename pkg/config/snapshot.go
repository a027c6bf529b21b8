package config

// Snapshot is the fully resolved catalogue in serializable form, used by
// host tooling to inspect the effective transport configuration. Durations
// are reported in milliseconds, matching the raw tunable unit.
type Snapshot struct {
	RecvQueueDepth                  int             `json:"recv_queue_depth"`
	SendQueueDepth                  int             `json:"send_queue_depth"`
	RecvWorkRequestSize             int64           `json:"recv_work_request_size"`
	SoftwareFlowControl             bool            `json:"software_flow_control"`
	CPUList                         string          `json:"cpu_list"`
	ShuffleWriteBlockSize           int64           `json:"shuffle_write_block_size"`
	ShuffleReadBlockSize            int64           `json:"shuffle_read_block_size"`
	MaxBytesInFlight                int64           `json:"max_bytes_in_flight"`
	AggregationBlockSize            int64           `json:"aggregation_block_size"`
	PreAllocateAggregationBuffers   int             `json:"pre_allocate_aggregation_buffers"`
	CollectShuffleReaderStats       bool            `json:"collect_shuffle_reader_stats"`
	PartitionLocationFetchTimeoutMs int64           `json:"partition_location_fetch_timeout_ms"`
	FetchTimeBucketSizeMs           int64           `json:"fetch_time_bucket_size_ms"`
	FetchTimeBucketCount            int             `json:"fetch_time_bucket_count"`
	DriverHost                      string          `json:"driver_host"`
	DriverPort                      int             `json:"driver_port"`
	ExecutorPort                    int             `json:"executor_port"`
	PortMaxRetries                  int             `json:"port_max_retries"`
	ConnectionEventTimeoutMs        int64           `json:"connection_event_timeout_ms"`
	TeardownListenTimeoutMs         int64           `json:"teardown_listen_timeout_ms"`
	PathResolutionTimeoutMs         int64           `json:"path_resolution_timeout_ms"`
	MaxConnectionAttempts           int             `json:"max_connection_attempts"`
	Fallbacks                       []FallbackEvent `json:"fallbacks,omitempty"`
}

// Snapshot resolves every catalogued parameter through this instance's
// cache and returns the effective values. The first coercion error aborts
// the snapshot.
func (c *TransportConf) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		CPUList:    c.CPUList(),
		DriverHost: c.DriverHost(),
	}

	var err error
	if s.RecvQueueDepth, err = c.RecvQueueDepth(); err != nil {
		return nil, err
	}
	if s.SendQueueDepth, err = c.SendQueueDepth(); err != nil {
		return nil, err
	}
	if s.RecvWorkRequestSize, err = c.RecvWorkRequestSize(); err != nil {
		return nil, err
	}
	if s.SoftwareFlowControl, err = c.SoftwareFlowControl(); err != nil {
		return nil, err
	}
	if s.ShuffleWriteBlockSize, err = c.ShuffleWriteBlockSize(); err != nil {
		return nil, err
	}
	if s.ShuffleReadBlockSize, err = c.ShuffleReadBlockSize(); err != nil {
		return nil, err
	}
	if s.MaxBytesInFlight, err = c.MaxBytesInFlight(); err != nil {
		return nil, err
	}
	if s.AggregationBlockSize, err = c.AggregationBlockSize(); err != nil {
		return nil, err
	}
	if s.PreAllocateAggregationBuffers, err = c.PreAllocateAggregationBuffers(); err != nil {
		return nil, err
	}
	if s.CollectShuffleReaderStats, err = c.CollectShuffleReaderStats(); err != nil {
		return nil, err
	}

	fetchTimeout, err := c.PartitionLocationFetchTimeout()
	if err != nil {
		return nil, err
	}
	s.PartitionLocationFetchTimeoutMs = fetchTimeout.Milliseconds()

	bucketSize, err := c.FetchTimeBucketSize()
	if err != nil {
		return nil, err
	}
	s.FetchTimeBucketSizeMs = bucketSize.Milliseconds()

	if s.FetchTimeBucketCount, err = c.FetchTimeBucketCount(); err != nil {
		return nil, err
	}
	if s.DriverPort, err = c.DriverPort(); err != nil {
		return nil, err
	}
	if s.ExecutorPort, err = c.ExecutorPort(); err != nil {
		return nil, err
	}
	if s.PortMaxRetries, err = c.PortMaxRetries(); err != nil {
		return nil, err
	}

	eventTimeout, err := c.ConnectionEventTimeout()
	if err != nil {
		return nil, err
	}
	s.ConnectionEventTimeoutMs = eventTimeout.Milliseconds()

	teardownTimeout, err := c.TeardownListenTimeout()
	if err != nil {
		return nil, err
	}
	s.TeardownListenTimeoutMs = teardownTimeout.Milliseconds()

	pathTimeout, err := c.PathResolutionTimeout()
	if err != nil {
		return nil, err
	}
	s.PathResolutionTimeoutMs = pathTimeout.Milliseconds()

	if s.MaxConnectionAttempts, err = c.MaxConnectionAttempts(); err != nil {
		return nil, err
	}

	s.Fallbacks = c.FallbackEvents()
	return s, nil
}
