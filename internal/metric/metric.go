package metric

// Metric type tags understood by the consumer ingest endpoint.
const (
	TypeContainer = "container"
	TypeNodeCPU   = "node_cpu"
	TypeNodeMem   = "node_mem"
	TypeNodeSwap  = "node_swap"
	TypeNodeDisk  = "node_disk"
	TypeNodeNet   = "node_net"
	TypePVCUsage  = "pvc_usage"
)

// ResourceSample is one pod or container reading taken from the cgroup
// hierarchy. CPUMillis is a raw monotonic counter snapshot; deltas are the
// consumer's job. A MemoryLimitMB of zero means unlimited or unknown.
type ResourceSample struct {
	Node          string
	PodID         string
	ContainerID   string
	CPUMillis     uint64
	MemoryMB      uint64
	MemoryLimitMB uint64
}

// Records expands the sample into wire records, one per counter.
func (s ResourceSample) Records() []RawMetric {
	base := RawMetric{
		Type:        TypeContainer,
		PodID:       s.PodID,
		ContainerID: s.ContainerID,
	}
	cpu := base
	cpu.Key = "cpu_ms"
	cpu.Value = float64(s.CPUMillis)
	mem := base
	mem.Key = "mem_mb"
	mem.Value = float64(s.MemoryMB)
	limit := base
	limit.Key = "mem_limit_mb"
	limit.Value = float64(s.MemoryLimitMB)
	return []RawMetric{cpu, mem, limit}
}

// RawMetric is a single measurement in the ingest payload.
type RawMetric struct {
	Type        string  `json:"type"`
	PodID       string  `json:"pod_id,omitempty"`
	PodUID      string  `json:"pod_uid,omitempty"`
	Volume      string  `json:"volume,omitempty"`
	ContainerID string  `json:"container_id,omitempty"`
	Device      string  `json:"device,omitempty"`
	Key         string  `json:"key"`
	Value       float64 `json:"value"`
	Timestamp   int64   `json:"ts"`
}

// Batch is the payload posted to the consumer.
type Batch struct {
	Node    string      `json:"node"`
	Metrics []RawMetric `json:"metrics"`
}

// Recorder accumulates the metrics of a single collection pass. All records
// share the pass timestamp.
type Recorder struct {
	ts      int64
	metrics []RawMetric
}

// NewRecorder returns a Recorder stamping records with ts (unix seconds).
func NewRecorder(ts int64) *Recorder {
	return &Recorder{ts: ts}
}

// Add appends one record to the pass.
func (r *Recorder) Add(m RawMetric) {
	m.Timestamp = r.ts
	r.metrics = append(r.metrics, m)
}

// Emit satisfies the cgroup collector sink: one sample fans out into its
// per-counter records.
func (r *Recorder) Emit(s ResourceSample) {
	for _, m := range s.Records() {
		r.Add(m)
	}
}

// Len returns the number of records collected so far.
func (r *Recorder) Len() int {
	return len(r.metrics)
}

// Counts returns record counts grouped by metric type.
func (r *Recorder) Counts() map[string]int {
	counts := make(map[string]int)
	for _, m := range r.metrics {
		counts[m.Type]++
	}
	return counts
}

// Batch packages the recorded pass for the given node.
func (r *Recorder) Batch(node string) Batch {
	return Batch{Node: node, Metrics: r.metrics}
}
