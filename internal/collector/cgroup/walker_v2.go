package cgroup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	v2PodsSlice   = "kubepods.slice"
	v2SlicePrefix = "kubepods-"
)

// walkV2 enumerates pod scopes in the unified hierarchy. Children of the
// kubepods slice are either pod slices (guaranteed pods sit at the top
// level) or QoS slices holding pod slices one level down. The walk stops at
// pod granularity; container scopes below the pod slice are not visited.
func (c *Collector) walkV2(sink Sink) {
	podsRoot := filepath.Join(c.root, v2PodsSlice)
	entries, err := os.ReadDir(podsRoot)
	if err != nil {
		// Absence means no kubelet pods on this hierarchy; anything else is
		// worth a diagnostic, but either way the pass yields zero samples.
		if !os.IsNotExist(err) {
			c.logger.Warn("read kubepods slice failed",
				slog.String("path", podsRoot),
				slog.String("error", err.Error()))
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, v2SlicePrefix) {
			continue
		}
		path := filepath.Join(podsRoot, name)
		if classify(name) == kindQoS {
			c.walkV2QoSSlice(path, sink)
			continue
		}
		c.emit(sink, name, "", readV2Stats(path))
	}
}

// walkV2QoSSlice emits one sample per pod slice inside a QoS slice.
func (c *Collector) walkV2QoSSlice(dir string, sink Sink) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Slices vanish when the last pod in the tier goes away; that race
		// is expected.
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, v2SlicePrefix) || classify(name) != kindPod {
			continue
		}
		c.emit(sink, name, "", readV2Stats(filepath.Join(dir, name)))
	}
}
