package cgroup

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestReadV2Stats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu.stat", "usage_usec 1234999\nuser_usec 1000000\nsystem_usec 234999\n")
	writeFile(t, dir, "memory.current", "209715200\n")
	writeFile(t, dir, "memory.max", "1073741824\n")

	u := readV2Stats(dir)
	if u.cpuMillis != 1234 {
		t.Fatalf("expected cpu 1234 ms (floor), got %d", u.cpuMillis)
	}
	if u.memoryMB != 200 {
		t.Fatalf("expected 200 MB usage, got %d", u.memoryMB)
	}
	if u.memoryLimitMB != 1024 {
		t.Fatalf("expected 1024 MB limit, got %d", u.memoryLimitMB)
	}
}

func TestReadV2StatsUnlimitedSentinel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "memory.max", "max\n")

	if u := readV2Stats(dir); u.memoryLimitMB != 0 {
		t.Fatalf("expected max sentinel to map to 0, got %d", u.memoryLimitMB)
	}
}

func TestReadV2StatsPartialOnParseDefect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu.stat", "usage_usec not-a-number\n")
	writeFile(t, dir, "memory.current", "garbage")
	writeFile(t, dir, "memory.max", "536870912")

	u := readV2Stats(dir)
	if u.cpuMillis != 0 || u.memoryMB != 0 {
		t.Fatalf("expected defective fields to default to zero, got %+v", u)
	}
	if u.memoryLimitMB != 512 {
		t.Fatalf("expected intact limit field, got %d", u.memoryLimitMB)
	}
}

func TestReadV1Stats(t *testing.T) {
	root := t.TempDir()
	cpuDir := filepath.Join(root, "cpu", "kubepods", "pod123", "cid")
	memDir := filepath.Join(root, "memory", "kubepods", "pod123", "cid")
	for _, dir := range []string{cpuDir, memDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	writeFile(t, cpuDir, "cpuacct.usage", "1999999999\n")
	writeFile(t, memDir, "memory.usage_in_bytes", "104857600\n")
	writeFile(t, memDir, "memory.limit_in_bytes", "268435456\n")

	u := readV1Stats(cpuDir)
	if u.cpuMillis != 1999 {
		t.Fatalf("expected cpu 1999 ms (floor), got %d", u.cpuMillis)
	}
	if u.memoryMB != 100 {
		t.Fatalf("expected 100 MB usage, got %d", u.memoryMB)
	}
	if u.memoryLimitMB != 256 {
		t.Fatalf("expected 256 MB limit, got %d", u.memoryLimitMB)
	}
}

func TestReadV1StatsUnlimitedSentinel(t *testing.T) {
	root := t.TempDir()
	cpuDir := filepath.Join(root, "cpu", "kubepods", "pod123", "cid")
	memDir := filepath.Join(root, "memory", "kubepods", "pod123", "cid")
	for _, dir := range []string{cpuDir, memDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	// Exactly at the half-range threshold: must read as unlimited.
	writeFile(t, memDir, "memory.limit_in_bytes", fmt.Sprintf("%d", uint64(math.MaxUint64/2)))

	if u := readV1Stats(cpuDir); u.memoryLimitMB != 0 {
		t.Fatalf("expected near-max limit to map to 0, got %d", u.memoryLimitMB)
	}
}

func TestMemoryPathForCPU(t *testing.T) {
	got := memoryPathForCPU("/sys/fs/cgroup/cpu/kubepods/pod42/abc")
	want := "/sys/fs/cgroup/memory/kubepods/pod42/abc"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMemoryPathForCPUFirstOccurrenceOnly(t *testing.T) {
	got := memoryPathForCPU("/root/cpu/kubepods/cpu/pod")
	want := "/root/memory/kubepods/cpu/pod"
	if got != want {
		t.Fatalf("expected single substitution %q, got %q", want, got)
	}
}
