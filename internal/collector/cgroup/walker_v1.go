package cgroup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// v1 cpu-controller roots, tried in order: cgroupfs driver first, then the
// systemd driver.
var v1Roots = []string{
	"cpu/kubepods",
	"cpu/kubepods.slice",
}

const hierarchyRootName = "kubepods"

// walkV1 descends the split hierarchy from the cpu-controller root. QoS
// slices add an extra directory level between root and pods, and can nest,
// so the walk keeps an explicit work stack instead of recursing; branches
// are independent and order follows directory listing, which is not sorted.
func (c *Collector) walkV1(sink Sink) {
	root := c.v1Root()
	if root == "" {
		return
	}

	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			// A slice vanishing mid-walk is a pod lifecycle race. Only a
			// failure on the hierarchy root itself deserves a diagnostic.
			if strings.Contains(dir, hierarchyRootName) {
				c.logger.Warn("read cgroup dir failed",
					slog.String("path", dir),
					slog.String("error", err.Error()))
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			name := entry.Name()
			switch classify(name) {
			case kindPod:
				c.collectV1Pod(filepath.Join(dir, name), name, sink)
			case kindQoS:
				stack = append(stack, filepath.Join(dir, name))
			}
		}
	}
}

// v1Root returns the first existing cpu-controller root, or "" when the
// node runs no v1 kubepods hierarchy at all.
func (c *Collector) v1Root() string {
	for _, rel := range v1Roots {
		path := filepath.Join(c.root, rel)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// collectV1Pod emits one sample per container scope inside a pod directory.
// Pods hold non-container entries too; a pod with zero container scopes is
// a lifecycle transient, not an error.
func (c *Collector) collectV1Pod(podPath, podName string, sink Sink) {
	entries, err := os.ReadDir(podPath)
	if err != nil {
		c.logger.Warn("read pod cgroup failed",
			slog.String("pod", podName),
			slog.String("error", err.Error()))
		return
	}

	found := false
	for _, entry := range entries {
		if !entry.IsDir() || !isContainerName(entry.Name()) {
			continue
		}
		c.emit(sink, podName, entry.Name(), readV1Stats(filepath.Join(podPath, entry.Name())))
		found = true
	}
	if !found {
		c.logger.Debug("no container scopes under pod cgroup", slog.String("pod", podName))
	}
}
