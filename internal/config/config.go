package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the agent.
type Config struct {
	NodeName        string           `yaml:"nodeName"`
	ListenAddr      string           `yaml:"listenAddr"`
	LogLevel        string           `yaml:"logLevel"`
	IntervalSeconds int              `yaml:"intervalSeconds"`
	CgroupRoot      string           `yaml:"cgroupRoot"`
	ProcRoot        string           `yaml:"procRoot"`
	KubeletPodsDir  string           `yaml:"kubeletPodsDir"`
	Collectors      CollectorsConfig `yaml:"collectors"`
	Remote          RemoteConfig     `yaml:"remote"`
}

// CollectorsConfig toggles the individual data sources.
type CollectorsConfig struct {
	System     bool `yaml:"system"`
	Containers bool `yaml:"containers"`
	Volumes    bool `yaml:"volumes"`
}

// RemoteConfig configures forwarding batches to the consumer.
type RemoteConfig struct {
	Enabled       bool          `yaml:"enabled"`
	EndpointURL   string        `yaml:"endpointUrl"`
	AuthToken     string        `yaml:"authToken"`
	Timeout       time.Duration `yaml:"timeout"`
	QueueDir      string        `yaml:"queueDir"`
	FlushEvery    time.Duration `yaml:"flushEvery"`
	MaxBatch      int           `yaml:"maxBatch"`
	MaxRetries    int           `yaml:"maxRetries"`
	Backoff       time.Duration `yaml:"backoff"`
	MaxBatchBytes int64         `yaml:"maxBatchBytes"`
	MemoryBuffer  int           `yaml:"memoryBuffer"`
	GzipEnabled   bool          `yaml:"gzipEnabled"`
}

// DefaultConfig returns sane defaults for a DaemonSet deployment.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		IntervalSeconds: 1,
		CgroupRoot:      "/sys/fs/cgroup",
		ProcRoot:        "/proc",
		KubeletPodsDir:  "/var/lib/kubelet/pods",
		Collectors: CollectorsConfig{
			System:     true,
			Containers: true,
			Volumes:    true,
		},
		Remote: RemoteConfig{
			Enabled:       true,
			EndpointURL:   "http://vita-consumer:8080/api/v1/ingest",
			Timeout:       5 * time.Second,
			QueueDir:      "/var/lib/vitakube/queue",
			FlushEvery:    5 * time.Second,
			MaxBatch:      50,
			MaxRetries:    5,
			Backoff:       10 * time.Second,
			MaxBatchBytes: 512 * 1024,
			MemoryBuffer:  200,
			GzipEnabled:   true,
		},
	}
}

// Interval returns the configured collection interval.
func (c Config) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Load builds the configuration by merging defaults, file, environment, and
// flags.
func Load() (Config, error) {
	cfg := DefaultConfig()

	configFile := os.Getenv("VITAKUBE_CONFIG_FILE")

	fs := flag.NewFlagSet("vitakube-agent", flag.ContinueOnError)
	fs.StringVar(&configFile, "config", configFile, "Path to YAML config file")
	fs.StringVar(&cfg.NodeName, "node-name", cfg.NodeName, "Node name (defaults to NODE_NAME or the hostname)")
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.IntVar(&cfg.IntervalSeconds, "interval", cfg.IntervalSeconds, "Collection interval in seconds")
	fs.StringVar(&cfg.CgroupRoot, "cgroup-root", cfg.CgroupRoot, "Cgroup filesystem root")
	fs.StringVar(&cfg.ProcRoot, "proc-root", cfg.ProcRoot, "Proc filesystem root")
	fs.StringVar(&cfg.KubeletPodsDir, "kubelet-pods-dir", cfg.KubeletPodsDir, "Kubelet pods directory for volume stats")
	fs.BoolVar(&cfg.Collectors.System, "collect-system", cfg.Collectors.System, "Enable host-wide /proc metrics")
	fs.BoolVar(&cfg.Collectors.Containers, "collect-containers", cfg.Collectors.Containers, "Enable cgroup container metrics")
	fs.BoolVar(&cfg.Collectors.Volumes, "collect-volumes", cfg.Collectors.Volumes, "Enable kubelet volume capacity metrics")
	fs.BoolVar(&cfg.Remote.Enabled, "remote-enabled", cfg.Remote.Enabled, "Enable sending batches to the consumer")
	fs.StringVar(&cfg.Remote.EndpointURL, "consumer-endpoint", cfg.Remote.EndpointURL, "Consumer ingest endpoint URL")
	fs.StringVar(&cfg.Remote.AuthToken, "remote-auth-token", cfg.Remote.AuthToken, "Bearer token for the consumer")
	fs.DurationVar(&cfg.Remote.Timeout, "remote-timeout", cfg.Remote.Timeout, "Timeout for consumer requests")
	fs.StringVar(&cfg.Remote.QueueDir, "remote-queue-dir", cfg.Remote.QueueDir, "Disk queue directory for batches")
	fs.DurationVar(&cfg.Remote.FlushEvery, "remote-flush-every", cfg.Remote.FlushEvery, "Flush interval for queued batches")
	fs.IntVar(&cfg.Remote.MaxBatch, "remote-max-batch", cfg.Remote.MaxBatch, "Max spooled batches merged per flush")
	fs.IntVar(&cfg.Remote.MaxRetries, "remote-max-retries", cfg.Remote.MaxRetries, "Max retries per spooled batch")
	fs.DurationVar(&cfg.Remote.Backoff, "remote-backoff", cfg.Remote.Backoff, "Backoff before retrying a failed batch")
	fs.Int64Var(&cfg.Remote.MaxBatchBytes, "remote-max-batch-bytes", cfg.Remote.MaxBatchBytes, "Max payload size per flush in bytes")
	fs.IntVar(&cfg.Remote.MemoryBuffer, "remote-memory-buffer", cfg.Remote.MemoryBuffer, "In-memory buffer size before spooling to disk")
	fs.BoolVar(&cfg.Remote.GzipEnabled, "remote-gzip", cfg.Remote.GzipEnabled, "Enable gzip compression for batches")

	if err := fs.Parse(os.Args[1:]); err != nil { // flag set already prints errors
		return Config{}, err
	}

	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	// Env overrides apply after the file so that env > file.
	applyEnvOverrides(&cfg)

	if cfg.IntervalSeconds < 1 {
		cfg.IntervalSeconds = 1
	}
	if cfg.Remote.Enabled && cfg.Remote.EndpointURL == "" {
		return Config{}, fmt.Errorf("remote forwarding enabled without an endpoint")
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path provided by cluster operator
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	type fileConfig Config
	var fileCfg fileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	mergeConfigs(cfg, Config(fileCfg))
	return nil
}

func mergeConfigs(base *Config, override Config) {
	if override.NodeName != "" {
		base.NodeName = override.NodeName
	}
	if override.ListenAddr != "" {
		base.ListenAddr = override.ListenAddr
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if override.IntervalSeconds != 0 {
		base.IntervalSeconds = override.IntervalSeconds
	}
	if override.CgroupRoot != "" {
		base.CgroupRoot = override.CgroupRoot
	}
	if override.ProcRoot != "" {
		base.ProcRoot = override.ProcRoot
	}
	if override.KubeletPodsDir != "" {
		base.KubeletPodsDir = override.KubeletPodsDir
	}
	mergeRemoteConfig(&base.Remote, override.Remote)
}

func mergeRemoteConfig(base *RemoteConfig, override RemoteConfig) {
	if override.Enabled {
		base.Enabled = override.Enabled
	}
	if override.EndpointURL != "" {
		base.EndpointURL = override.EndpointURL
	}
	if override.AuthToken != "" {
		base.AuthToken = override.AuthToken
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
	if override.QueueDir != "" {
		base.QueueDir = override.QueueDir
	}
	if override.FlushEvery != 0 {
		base.FlushEvery = override.FlushEvery
	}
	if override.MaxBatch != 0 {
		base.MaxBatch = override.MaxBatch
	}
	if override.MaxRetries != 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.Backoff != 0 {
		base.Backoff = override.Backoff
	}
	if override.MaxBatchBytes != 0 {
		base.MaxBatchBytes = override.MaxBatchBytes
	}
	if override.MemoryBuffer != 0 {
		base.MemoryBuffer = override.MemoryBuffer
	}
	if override.GzipEnabled {
		base.GzipEnabled = override.GzipEnabled
	}
}

func applyEnvOverrides(cfg *Config) {
	// Names the previous agent generation established; kept for drop-in
	// compatibility with existing DaemonSet manifests.
	if v := os.Getenv("NODE_NAME"); v != "" && cfg.NodeName == "" {
		cfg.NodeName = v
	}
	if v := os.Getenv("CONSUMER_ENDPOINT"); v != "" {
		cfg.Remote.EndpointURL = v
	}
	if v := os.Getenv("COLLECTION_INTERVAL"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.IntervalSeconds = iv
		}
	}

	if v := os.Getenv("VITAKUBE_NODE_NAME"); v != "" {
		cfg.NodeName = v
	}
	if v := os.Getenv("VITAKUBE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("VITAKUBE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VITAKUBE_INTERVAL"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.IntervalSeconds = iv
		}
	}
	if v := os.Getenv("VITAKUBE_CGROUP_ROOT"); v != "" {
		cfg.CgroupRoot = v
	}
	if v := os.Getenv("VITAKUBE_PROC_ROOT"); v != "" {
		cfg.ProcRoot = v
	}
	if v := os.Getenv("VITAKUBE_KUBELET_PODS_DIR"); v != "" {
		cfg.KubeletPodsDir = v
	}
	if v := os.Getenv("VITAKUBE_COLLECT_SYSTEM"); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			cfg.Collectors.System = bv
		}
	}
	if v := os.Getenv("VITAKUBE_COLLECT_CONTAINERS"); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			cfg.Collectors.Containers = bv
		}
	}
	if v := os.Getenv("VITAKUBE_COLLECT_VOLUMES"); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			cfg.Collectors.Volumes = bv
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_ENABLED"); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			cfg.Remote.Enabled = bv
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_AUTH_TOKEN"); v != "" {
		cfg.Remote.AuthToken = v
	}
	if v := os.Getenv("VITAKUBE_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.Timeout = d
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_QUEUE_DIR"); v != "" {
		cfg.Remote.QueueDir = v
	}
	if v := os.Getenv("VITAKUBE_REMOTE_FLUSH_EVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.FlushEvery = d
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_MAX_BATCH"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Remote.MaxBatch = iv
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_MAX_RETRIES"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Remote.MaxRetries = iv
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.Backoff = d
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_MAX_BATCH_BYTES"); v != "" {
		if iv, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Remote.MaxBatchBytes = iv
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_MEMORY_BUFFER"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Remote.MemoryBuffer = iv
		}
	}
	if v := os.Getenv("VITAKUBE_REMOTE_GZIP"); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			cfg.Remote.GzipEnabled = bv
		}
	}
}
