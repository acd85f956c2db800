// Package cgroup discovers pod and container cgroup directories on a
// kubernetes node and extracts their resource counters, without talking to
// the API server or the container runtime. The hierarchy shape depends on
// the cgroup version and the cgroup driver, so discovery is driven entirely
// by directory-name heuristics.
package cgroup

import (
	"log/slog"

	"github.com/nchanged/vitakube/internal/metric"
)

// Sink receives one normalized sample per discovered pod (v2) or container
// (v1). Delivery is synchronous; buffering and shipping belong to the sink.
type Sink interface {
	Emit(sample metric.ResourceSample)
}

// Collector walks the cgroup hierarchy once per collection pass.
type Collector struct {
	root   string
	node   string
	logger *slog.Logger
}

// NewCollector returns a collector reading the hierarchy mounted at root
// (normally /sys/fs/cgroup).
func NewCollector(root, node string, logger *slog.Logger) *Collector {
	if root == "" {
		root = "/sys/fs/cgroup"
	}
	return &Collector{root: root, node: node, logger: logger}
}

// Collect performs one full discovery pass and reports which hierarchy
// version it walked. The version is probed fresh on every pass and nothing
// is carried over between passes. Failures inside the walk degrade to fewer
// samples, never to an error.
func (c *Collector) Collect(sink Sink) Version {
	version := detectVersion(c.root)
	if version == V2 {
		c.walkV2(sink)
	} else {
		c.walkV1(sink)
	}
	return version
}

// emit packages one resolved cgroup's counters into a sample and hands it
// off.
func (c *Collector) emit(sink Sink, podID, containerID string, u usage) {
	sink.Emit(metric.ResourceSample{
		Node:          c.node,
		PodID:         podID,
		ContainerID:   containerID,
		CPUMillis:     u.cpuMillis,
		MemoryMB:      u.memoryMB,
		MemoryLimitMB: u.memoryLimitMB,
	})
}
