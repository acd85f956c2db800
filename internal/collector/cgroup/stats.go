package cgroup

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// usage holds the normalized counters extracted from one cgroup directory.
type usage struct {
	cpuMillis     uint64
	memoryMB      uint64
	memoryLimitMB uint64
}

const bytesPerMB = 1 << 20

// v1 reports "no limit" as a value near the top of the uint64 range; the
// exact sentinel varies by kernel, so anything in the upper half counts.
const unlimitedThreshold = math.MaxUint64 / 2

// readV2Stats extracts counters from a unified-hierarchy directory. Every
// file is optional: a missing or malformed counter leaves its field at zero
// and never suppresses the rest of the sample.
func readV2Stats(dir string) usage {
	var u usage
	if data, err := os.ReadFile(filepath.Join(dir, "cpu.stat")); err == nil {
		u.cpuMillis = cpuStatUsec(string(data)) / 1000
	}
	if bytes, ok := readUint(filepath.Join(dir, "memory.current")); ok {
		u.memoryMB = bytes / bytesPerMB
	}
	if data, err := os.ReadFile(filepath.Join(dir, "memory.max")); err == nil {
		raw := strings.TrimSpace(string(data))
		// "max" means unlimited and must never reach the parser.
		if raw != "max" {
			if bytes, err := strconv.ParseUint(raw, 10, 64); err == nil && bytes < unlimitedThreshold {
				u.memoryLimitMB = bytes / bytesPerMB
			}
		}
	}
	return u
}

// cpuStatUsec pulls the usage_usec value out of a cpu.stat payload.
func cpuStatUsec(content string) uint64 {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "usage_usec" {
			if usec, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				return usec
			}
		}
	}
	return 0
}

// readV1Stats extracts counters for a container scope in the split
// hierarchy. cpuDir is the cpu-controller path; the memory tree is reached
// through memoryPathForCPU.
func readV1Stats(cpuDir string) usage {
	var u usage
	if ns, ok := readUint(filepath.Join(cpuDir, "cpuacct.usage")); ok {
		u.cpuMillis = ns / 1_000_000
	}
	memDir := memoryPathForCPU(cpuDir)
	if bytes, ok := readUint(filepath.Join(memDir, "memory.usage_in_bytes")); ok {
		u.memoryMB = bytes / bytesPerMB
	}
	if bytes, ok := readUint(filepath.Join(memDir, "memory.limit_in_bytes")); ok && bytes < unlimitedThreshold {
		u.memoryLimitMB = bytes / bytesPerMB
	}
	return u
}

// memoryPathForCPU derives the memory-controller path matching a
// cpu-controller path. v1 keeps the same cgroup layout under every
// controller, so swapping the first controller segment is sufficient. The
// path is deliberately not canonicalized: the guarantee is textual, not
// filesystem identity.
func memoryPathForCPU(cpuPath string) string {
	return strings.Replace(cpuPath, "/cpu/", "/memory/", 1)
}

// readUint reads a file holding a single decimal counter.
func readUint(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
