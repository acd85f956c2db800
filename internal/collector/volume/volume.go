// Package volume reports capacity for every volume mounted under the
// kubelet pods directory, one filesystem-statistics call per volume.
package volume

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nchanged/vitakube/internal/metric"
)

// Collector walks /var/lib/kubelet/pods/<uid>/volumes/<driver>/<name>.
type Collector struct {
	podsDir string
	logger  *slog.Logger
}

// New returns a collector for the given kubelet pods directory.
func New(podsDir string, logger *slog.Logger) *Collector {
	if podsDir == "" {
		podsDir = "/var/lib/kubelet/pods"
	}
	return &Collector{podsDir: podsDir, logger: logger}
}

// Collect records per-volume capacity. A missing pods directory means the
// agent runs off-node; that is a quiet no-op.
func (c *Collector) Collect(rec *metric.Recorder) {
	pods, err := os.ReadDir(c.podsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("read kubelet pods dir failed", slog.String("error", err.Error()))
		}
		return
	}
	for _, pod := range pods {
		if !pod.IsDir() {
			continue
		}
		c.collectPodVolumes(filepath.Join(c.podsDir, pod.Name()), pod.Name(), rec)
	}
}

func (c *Collector) collectPodVolumes(podPath, podUID string, rec *metric.Recorder) {
	drivers, err := os.ReadDir(filepath.Join(podPath, "volumes"))
	if err != nil {
		// Pods without volumes have no volumes directory at all.
		return
	}
	for _, driver := range drivers {
		if !driver.IsDir() {
			continue
		}
		driverPath := filepath.Join(podPath, "volumes", driver.Name())
		volumes, err := os.ReadDir(driverPath)
		if err != nil {
			continue
		}
		for _, vol := range volumes {
			if !vol.IsDir() {
				continue
			}
			// CSI volumes mount one level deeper; everything else (emptydir,
			// configmap, ...) is the volume directory itself.
			mountPoint := filepath.Join(driverPath, vol.Name())
			if info, err := os.Stat(filepath.Join(mountPoint, "mount")); err == nil && info.IsDir() {
				mountPoint = filepath.Join(mountPoint, "mount")
			}
			c.collectVolumeStats(mountPoint, podUID, vol.Name(), rec)
		}
	}
}

func (c *Collector) collectVolumeStats(mountPoint, podUID, volName string, rec *metric.Recorder) {
	stats, err := statFS(mountPoint)
	if err != nil {
		// Stale mounts disappear with their pod; skip.
		return
	}
	// Sub-MB filesystems are projected volumes and tmpfs noise.
	if stats.totalMB == 0 {
		return
	}
	add := func(key string, value uint64) {
		rec.Add(metric.RawMetric{
			Type:   metric.TypePVCUsage,
			PodUID: podUID,
			Volume: volName,
			Key:    key,
			Value:  float64(value),
		})
	}
	add("total_mb", stats.totalMB)
	add("used_mb", stats.usedMB)
	add("free_mb", stats.freeMB)
}

// fsStats is one filesystem-statistics reading in MB.
type fsStats struct {
	totalMB uint64
	usedMB  uint64
	freeMB  uint64
}
