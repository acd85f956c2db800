// Package system reads host-wide counters from the proc filesystem. Pure
// flat-file parsing; no structural discovery happens here.
package system

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nchanged/vitakube/internal/metric"
)

// Collector parses /proc counters into node-level metrics.
type Collector struct {
	procRoot string
	logger   *slog.Logger
}

// New returns a collector reading below procRoot (normally /proc).
func New(procRoot string, logger *slog.Logger) *Collector {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Collector{procRoot: procRoot, logger: logger}
}

// Collect records CPU, memory, disk, and network counters. Each source
// degrades independently: an unreadable file costs only its own metrics.
func (c *Collector) Collect(rec *metric.Recorder) {
	c.collectCPU(rec)
	c.collectMemory(rec)
	c.collectDisk(rec)
	c.collectNetwork(rec)
}

func (c *Collector) collectCPU(rec *metric.Recorder) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "stat"))
	if err != nil {
		c.logger.Warn("read proc stat failed", slog.String("error", err.Error()))
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		// cpu user nice system idle iowait irq softirq ...
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return
		}
		add := func(key string, raw string) {
			rec.Add(metric.RawMetric{
				Type:  metric.TypeNodeCPU,
				Key:   key,
				Value: float64(parseUint(raw)),
			})
		}
		add("user", fields[1])
		add("sys", fields[3])
		add("idle", fields[4])
		if len(fields) > 5 {
			add("iowait", fields[5])
		} else {
			add("iowait", "0")
		}
		return
	}
}

func (c *Collector) collectMemory(rec *metric.Recorder) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		c.logger.Warn("read meminfo failed", slog.String("error", err.Error()))
		return
	}

	var total, free, available, swapTotal, swapFree uint64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value := parseUint(fields[1]) // kB
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemFree:":
			free = value
		case "MemAvailable:":
			available = value
		case "SwapTotal:":
			swapTotal = value
		case "SwapFree:":
			swapFree = value
		}
	}

	used := total - min(total, free)
	mem := func(key string, kb uint64) {
		rec.Add(metric.RawMetric{Type: metric.TypeNodeMem, Key: key, Value: float64(kb / 1024)})
	}
	mem("total_mb", total)
	mem("used_mb", used)
	mem("free_mb", free)
	mem("avail_mb", available)

	if swapTotal > 0 {
		swapUsed := swapTotal - min(swapTotal, swapFree)
		rec.Add(metric.RawMetric{Type: metric.TypeNodeSwap, Key: "total_mb", Value: float64(swapTotal / 1024)})
		rec.Add(metric.RawMetric{Type: metric.TypeNodeSwap, Key: "used_mb", Value: float64(swapUsed / 1024)})
	}
}

func (c *Collector) collectDisk(rec *metric.Recorder) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "diskstats"))
	if err != nil {
		// Not every environment exposes diskstats; quiet skip.
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		// major minor name reads rmerged rsectors rtime writes ...
		fields := strings.Fields(line)
		if len(fields) < 14 {
			continue
		}
		device := fields[2]
		if strings.HasPrefix(device, "loop") || strings.HasPrefix(device, "ram") {
			continue
		}
		reads := parseUint(fields[3])
		sectorsRead := parseUint(fields[5])
		writes := parseUint(fields[7])
		sectorsWritten := parseUint(fields[9])
		if reads == 0 && writes == 0 {
			continue
		}
		disk := func(key string, value uint64) {
			rec.Add(metric.RawMetric{Type: metric.TypeNodeDisk, Device: device, Key: key, Value: float64(value)})
		}
		disk("reads", reads)
		disk("writes", writes)
		disk("sectors_r", sectorsRead)
		disk("sectors_w", sectorsWritten)
	}
}

func (c *Collector) collectNetwork(rec *metric.Recorder) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "net/dev"))
	if err != nil {
		return
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) <= 2 {
		return
	}
	for _, line := range lines[2:] { // two header lines
		fields := strings.Fields(line)
		if len(fields) < 17 {
			continue
		}
		iface := strings.TrimSuffix(fields[0], ":")
		// Loopback and veth pairs double-count pod traffic.
		if iface == "lo" || strings.HasPrefix(iface, "veth") {
			continue
		}
		rxBytes := parseUint(fields[1])
		txBytes := parseUint(fields[9])
		if rxBytes == 0 && txBytes == 0 {
			continue
		}
		net := func(key string, value uint64) {
			rec.Add(metric.RawMetric{Type: metric.TypeNodeNet, Device: iface, Key: key, Value: float64(value)})
		}
		net("rx_bytes", rxBytes)
		net("tx_bytes", txBytes)
		net("rx_pkts", parseUint(fields[2]))
		net("tx_pkts", parseUint(fields[10]))
		net("rx_errs", parseUint(fields[3]))
		net("tx_errs", parseUint(fields[11]))
	}
}

func parseUint(raw string) uint64 {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
