package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nchanged/vitakube/internal/api"
	"github.com/nchanged/vitakube/internal/collector/cgroup"
	"github.com/nchanged/vitakube/internal/collector/system"
	"github.com/nchanged/vitakube/internal/collector/volume"
	"github.com/nchanged/vitakube/internal/config"
	"github.com/nchanged/vitakube/internal/exporter"
	"github.com/nchanged/vitakube/internal/forwarder"
	"github.com/nchanged/vitakube/internal/logging"
	"github.com/nchanged/vitakube/internal/metric"
	"github.com/nchanged/vitakube/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	agentVersion := version.Value()

	logger := logging.New(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	nodeName := cfg.NodeName
	if nodeName == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			nodeName = host
		}
	}
	if nodeName == "" {
		nodeName = "unknown"
	}

	logger.Info("starting vitakube agent",
		slog.String("version", agentVersion),
		slog.String("node", nodeName),
		slog.Int("intervalSeconds", cfg.IntervalSeconds),
	)

	telemetry := exporter.NewTelemetry(nodeName)

	var queue *forwarder.Queue
	if cfg.Remote.Enabled && cfg.Remote.EndpointURL != "" {
		sender := forwarder.NewSender(cfg.Remote.EndpointURL, cfg.Remote.AuthToken, cfg.Remote.Timeout, cfg.Remote.GzipEnabled)
		queue = forwarder.NewQueue(cfg.Remote.QueueDir, cfg.Remote.MaxBatch, cfg.Remote.MaxRetries, cfg.Remote.Backoff, cfg.Remote.FlushEvery, cfg.Remote.MaxBatchBytes, cfg.Remote.MemoryBuffer, sender, telemetry, logger)
		logger.Info("forwarding enabled", slog.String("endpoint", cfg.Remote.EndpointURL))
		go queue.Run(ctx)
	}

	var systemCollector *system.Collector
	if cfg.Collectors.System {
		systemCollector = system.New(cfg.ProcRoot, logger)
	}
	var containerCollector *cgroup.Collector
	if cfg.Collectors.Containers {
		containerCollector = cgroup.NewCollector(cfg.CgroupRoot, nodeName, logger)
	}
	var volumeCollector *volume.Collector
	if cfg.Collectors.Volumes {
		volumeCollector = volume.New(cfg.KubeletPodsDir, logger)
	}

	store := metric.NewStore()

	go runCollectLoop(ctx, nodeName, systemCollector, containerCollector, volumeCollector, queue, store, telemetry, cfg.Interval(), logger)

	apiHandler := api.NewHandler(nodeName, agentVersion, store)
	mux := http.NewServeMux()
	apiHandler.Register(mux)
	mux.Handle("/metrics", telemetry.Handler())

	server := exporter.NewServer(cfg.ListenAddr, mux, logger)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runCollectLoop(ctx context.Context, nodeName string, systemCollector *system.Collector, containerCollector *cgroup.Collector, volumeCollector *volume.Collector, queue *forwarder.Queue, store *metric.Store, telemetry *exporter.Telemetry, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		collectOnce(nodeName, systemCollector, containerCollector, volumeCollector, queue, store, telemetry, logger)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// collectOnce runs one full pass: host counters, then the cgroup walk, then
// volume capacity. Every collector degrades on its own; a pass always
// completes and always publishes whatever it gathered.
func collectOnce(nodeName string, systemCollector *system.Collector, containerCollector *cgroup.Collector, volumeCollector *volume.Collector, queue *forwarder.Queue, store *metric.Store, telemetry *exporter.Telemetry, logger *slog.Logger) {
	started := time.Now()
	rec := metric.NewRecorder(started.Unix())

	if systemCollector != nil {
		systemCollector.Collect(rec)
	}
	if containerCollector != nil {
		hierarchy := containerCollector.Collect(rec)
		logger.Debug("container pass complete", slog.String("hierarchy", hierarchy.String()))
	}
	if volumeCollector != nil {
		volumeCollector.Collect(rec)
	}

	batch := rec.Batch(nodeName)
	store.Update(batch, started)
	telemetry.ObservePass(time.Since(started), rec.Counts())

	if queue != nil {
		if err := queue.Enqueue(batch); err != nil {
			logger.Warn("queue enqueue failed", slog.String("error", err.Error()))
		}
	}
}
