package metric

import (
	"testing"
	"time"
)

func TestResourceSampleRecords(t *testing.T) {
	sample := ResourceSample{
		PodID:         "kubepods-burstable-podABC.slice",
		ContainerID:   "docker-aaa.scope",
		CPUMillis:     1234,
		MemoryMB:      256,
		MemoryLimitMB: 512,
	}

	records := sample.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	want := map[string]float64{
		"cpu_ms":       1234,
		"mem_mb":       256,
		"mem_limit_mb": 512,
	}
	for _, rec := range records {
		if rec.Type != TypeContainer {
			t.Errorf("record %q: type %q, want %q", rec.Key, rec.Type, TypeContainer)
		}
		if rec.PodID != sample.PodID || rec.ContainerID != sample.ContainerID {
			t.Errorf("record %q lost identity: %+v", rec.Key, rec)
		}
		value, ok := want[rec.Key]
		if !ok {
			t.Errorf("unexpected key %q", rec.Key)
			continue
		}
		if rec.Value != value {
			t.Errorf("record %q: value %v, want %v", rec.Key, rec.Value, value)
		}
		delete(want, rec.Key)
	}
	if len(want) != 0 {
		t.Errorf("missing keys: %v", want)
	}
}

func TestRecorderStampsTimestamp(t *testing.T) {
	rec := NewRecorder(1700000000)

	rec.Add(RawMetric{Type: TypeNodeCPU, Key: "user", Value: 10})
	rec.Emit(ResourceSample{PodID: "podX", CPUMillis: 1})

	if rec.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", rec.Len())
	}
	batch := rec.Batch("node-a")
	if batch.Node != "node-a" {
		t.Fatalf("node %q, want node-a", batch.Node)
	}
	for _, m := range batch.Metrics {
		if m.Timestamp != 1700000000 {
			t.Errorf("record %q: timestamp %d, want 1700000000", m.Key, m.Timestamp)
		}
	}
}

func TestRecorderCounts(t *testing.T) {
	rec := NewRecorder(1)
	rec.Add(RawMetric{Type: TypeNodeMem, Key: "total_mb"})
	rec.Add(RawMetric{Type: TypeNodeMem, Key: "used_mb"})
	rec.Emit(ResourceSample{PodID: "podX"})

	counts := rec.Counts()
	if counts[TypeNodeMem] != 2 {
		t.Errorf("node_mem count %d, want 2", counts[TypeNodeMem])
	}
	if counts[TypeContainer] != 3 {
		t.Errorf("container count %d, want 3", counts[TypeContainer])
	}
}

func TestStoreLatest(t *testing.T) {
	store := NewStore()

	if _, _, ok := store.Latest(); ok {
		t.Fatal("expected empty store before first update")
	}

	at := time.Unix(1234, 0)
	store.Update(Batch{Node: "node-a", Metrics: []RawMetric{{Key: "cpu_ms"}}}, at)

	batch, got, ok := store.Latest()
	if !ok {
		t.Fatal("expected a batch after update")
	}
	if !got.Equal(at) {
		t.Errorf("timestamp %v, want %v", got, at)
	}
	if batch.Node != "node-a" || len(batch.Metrics) != 1 {
		t.Errorf("unexpected batch: %+v", batch)
	}
}
