package cgroup

import (
	"path/filepath"
	"testing"
)

const containerHash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestWalkV1FindsContainersThroughQoSSlices(t *testing.T) {
	root := t.TempDir()
	cpuPod := filepath.Join(root, "cpu", "kubepods", "burstable", "pod1111", containerHash)
	memPod := filepath.Join(root, "memory", "kubepods", "burstable", "pod1111", containerHash)
	mkdirAll(t, cpuPod)
	mkdirAll(t, memPod)
	writeFile(t, cpuPod, "cpuacct.usage", "3000000000\n")
	writeFile(t, memPod, "memory.usage_in_bytes", "52428800\n")
	writeFile(t, memPod, "memory.limit_in_bytes", "134217728\n")

	// A non-container entry inside the pod must be ignored.
	mkdirAll(t, filepath.Join(root, "cpu", "kubepods", "burstable", "pod1111", "short"))

	collector := NewCollector(root, "node-a", testLogger())
	sink := &captureSink{}
	collector.walkV1(sink)

	if len(sink.samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(sink.samples))
	}
	sample := sink.samples[0]
	if sample.PodID != "pod1111" || sample.ContainerID != containerHash {
		t.Fatalf("unexpected identity: pod=%q container=%q", sample.PodID, sample.ContainerID)
	}
	if sample.CPUMillis != 3000 || sample.MemoryMB != 50 || sample.MemoryLimitMB != 128 {
		t.Fatalf("unexpected counters: %+v", sample)
	}
}

func TestWalkV1PodNamedLikeQoSClass(t *testing.T) {
	root := t.TempDir()
	// The name contains "burstable" but is a pod; misclassification would
	// descend into it and find nothing.
	cpuPod := filepath.Join(root, "cpu", "kubepods.slice", "pod-burstable-1234", "docker-abc")
	mkdirAll(t, cpuPod)
	writeFile(t, cpuPod, "cpuacct.usage", "1000000\n")

	collector := NewCollector(root, "node-a", testLogger())
	sink := &captureSink{}
	collector.walkV1(sink)

	if len(sink.samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(sink.samples))
	}
	if sink.samples[0].PodID != "pod-burstable-1234" {
		t.Fatalf("unexpected pod id %q", sink.samples[0].PodID)
	}
	if sink.samples[0].CPUMillis != 1 {
		t.Fatalf("expected 1 ms, got %d", sink.samples[0].CPUMillis)
	}
}

func TestWalkV1PodWithoutContainers(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "cpu", "kubepods", "besteffort", "pod2222"))

	collector := NewCollector(root, "node-a", testLogger())
	sink := &captureSink{}
	collector.walkV1(sink)

	if len(sink.samples) != 0 {
		t.Fatalf("expected no samples for empty pod, got %d", len(sink.samples))
	}
}

func TestWalkV1NoRoots(t *testing.T) {
	collector := NewCollector(t.TempDir(), "node-a", testLogger())
	sink := &captureSink{}
	collector.walkV1(sink)

	if len(sink.samples) != 0 {
		t.Fatalf("expected no samples without a kubepods root, got %d", len(sink.samples))
	}
}

func TestWalkV1PrefersCgroupfsRoot(t *testing.T) {
	root := t.TempDir()
	// Both driver roots exist; the cgroupfs one must win.
	cpuPod := filepath.Join(root, "cpu", "kubepods", "pod3333", "crio-xyz")
	mkdirAll(t, cpuPod)
	writeFile(t, cpuPod, "cpuacct.usage", "2000000\n")
	mkdirAll(t, filepath.Join(root, "cpu", "kubepods.slice", "pod4444", "crio-other"))

	collector := NewCollector(root, "node-a", testLogger())
	sink := &captureSink{}
	collector.walkV1(sink)

	if len(sink.samples) != 1 || sink.samples[0].PodID != "pod3333" {
		t.Fatalf("expected the cgroupfs root pod only, got %+v", sink.samples)
	}
}
