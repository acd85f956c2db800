package cgroup

import (
	"os"
	"path/filepath"
)

// Version identifies the cgroup hierarchy layout in use on the node.
type Version int

const (
	// V1 is the legacy split-controller hierarchy (cpu, memory, ... as
	// separate trees).
	V1 Version = iota + 1
	// V2 is the unified hierarchy.
	V2
)

func (v Version) String() string {
	if v == V2 {
		return "v2"
	}
	return "v1"
}

// markerFile only exists at the root of a unified hierarchy.
const markerFile = "cgroup.controllers"

// detectVersion probes the unified-hierarchy marker below root. Existence
// alone decides; the probe is repeated fresh on every pass.
func detectVersion(root string) Version {
	if _, err := os.Stat(filepath.Join(root, markerFile)); err == nil {
		return V2
	}
	return V1
}
