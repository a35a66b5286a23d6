// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with precedence ENV > YAML file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a configuration loader for the given optional YAML
// path. An empty configPath means "environment and defaults only".
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the full configuration: defaults, then file, then
// environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}
	setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.StoreBackend == "sqlite" && cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.DataDir, "jobs.db")
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *AppConfig) {
	cfg.DataDir = "./data"
	cfg.LogLevel = "info"
	cfg.LogService = "mediavaultd"

	cfg.HTTPListenAddr = ":8080"

	cfg.LibraryDepth = 0 // unlimited

	cfg.GlobalMaxConcurrency = 4
	cfg.ToolCaps = map[string]int{
		ToolClassFFmpeg:          4,
		ToolClassFFprobe:         4,
		ToolClassSubtitleBackend: 1,
		ToolClassFaceBackend:     1,
		ToolClassPure:            8,
	}
	cfg.ToolTimeouts = map[string]time.Duration{
		ToolClassFFmpeg:  600 * time.Second,
		ToolClassFFprobe: 60 * time.Second,
	}
	cfg.CancelGrace = 10 * time.Second
	cfg.ShutdownGrace = 15 * time.Second

	cfg.StalenessTolerance = 2 * time.Second
	cfg.StatusCacheTTL = 30 * time.Second

	cfg.CoverageCacheTTL = 30 * time.Second

	cfg.OrphanConfidenceFloor = 0.60

	cfg.BusSubscriberQueueSize = 256

	cfg.FFmpegBin = "ffmpeg"
	cfg.FFprobeBin = "ffprobe"

	cfg.MetricsAddr = ":9090"

	cfg.StoreBackend = "sqlite"
	cfg.StoreRetentionHorizon = 7 * 24 * time.Hour

	cfg.TracingEnabled = false
	cfg.TracingExporter = "grpc"
	cfg.TracingEndpoint = "localhost:4317"
	cfg.TracingEnvironment = "development"
	cfg.TracingSamplingRate = 1.0
}

// loadFile parses a strict YAML document; unknown fields are rejected to
// prevent silent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- config path is supplied by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.DataDir != "" {
		dst.DataDir = expandEnv(src.DataDir)
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogService != "" {
		dst.LogService = src.LogService
	}

	if src.HTTP.ListenAddr != "" {
		dst.HTTPListenAddr = expandEnv(src.HTTP.ListenAddr)
	}
	if src.HTTP.Token != "" {
		dst.APIToken = expandEnv(src.HTTP.Token)
	}
	if len(src.HTTP.AllowedOrigins) > 0 {
		dst.AllowedOrigins = append([]string(nil), src.HTTP.AllowedOrigins...)
	}

	if src.Library.Root != "" {
		dst.LibraryRoot = expandEnv(src.Library.Root)
	}
	if src.Library.MaxDepth > 0 {
		dst.LibraryDepth = src.Library.MaxDepth
	}
	if len(src.Library.Exclude) > 0 {
		dst.LibraryExclude = append([]string(nil), src.Library.Exclude...)
	}

	if src.Scheduler.GlobalMaxConcurrency > 0 {
		dst.GlobalMaxConcurrency = src.Scheduler.GlobalMaxConcurrency
	}
	for class, cap := range src.Scheduler.ToolCaps {
		if dst.ToolCaps == nil {
			dst.ToolCaps = map[string]int{}
		}
		dst.ToolCaps[class] = cap
	}
	for class, raw := range src.Scheduler.ToolTimeouts {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid scheduler.toolTimeouts.%s: %w", class, err)
		}
		if dst.ToolTimeouts == nil {
			dst.ToolTimeouts = map[string]time.Duration{}
		}
		dst.ToolTimeouts[class] = d
	}
	if src.Scheduler.CancelGrace != "" {
		d, err := time.ParseDuration(src.Scheduler.CancelGrace)
		if err != nil {
			return fmt.Errorf("invalid scheduler.cancelGrace: %w", err)
		}
		dst.CancelGrace = d
	}
	if src.Scheduler.ShutdownGrace != "" {
		d, err := time.ParseDuration(src.Scheduler.ShutdownGrace)
		if err != nil {
			return fmt.Errorf("invalid scheduler.shutdownGrace: %w", err)
		}
		dst.ShutdownGrace = d
	}

	if src.Artifact.StalenessTolerance != "" {
		d, err := time.ParseDuration(src.Artifact.StalenessTolerance)
		if err != nil {
			return fmt.Errorf("invalid artifact.stalenessTolerance: %w", err)
		}
		dst.StalenessTolerance = d
	}
	if src.Artifact.StatusCacheTTL != "" {
		d, err := time.ParseDuration(src.Artifact.StatusCacheTTL)
		if err != nil {
			return fmt.Errorf("invalid artifact.statusCacheTTL: %w", err)
		}
		dst.StatusCacheTTL = d
	}

	if src.Coverage.CacheTTL != "" {
		d, err := time.ParseDuration(src.Coverage.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid coverage.cacheTTL: %w", err)
		}
		dst.CoverageCacheTTL = d
	}

	if src.Orphan.ConfidenceFloor != nil {
		dst.OrphanConfidenceFloor = *src.Orphan.ConfidenceFloor
	}

	if src.Bus.SubscriberQueueSize > 0 {
		dst.BusSubscriberQueueSize = src.Bus.SubscriberQueueSize
	}

	if src.Tools.FFmpegBin != "" {
		dst.FFmpegBin = expandEnv(src.Tools.FFmpegBin)
	}
	if src.Tools.FFprobeBin != "" {
		dst.FFprobeBin = expandEnv(src.Tools.FFprobeBin)
	}
	if src.Tools.SubtitleBin != "" {
		dst.SubtitleBin = expandEnv(src.Tools.SubtitleBin)
	}
	if src.Tools.FaceBin != "" {
		dst.FaceBin = expandEnv(src.Tools.FaceBin)
	}
	if src.Tools.EmbeddingBin != "" {
		dst.EmbeddingBin = expandEnv(src.Tools.EmbeddingBin)
	}

	if src.Metrics.Enabled != nil {
		dst.MetricsEnabled = *src.Metrics.Enabled
	}
	if src.Metrics.ListenAddr != "" {
		dst.MetricsAddr = expandEnv(src.Metrics.ListenAddr)
	}

	if src.Store.Backend != "" {
		dst.StoreBackend = src.Store.Backend
	}
	if src.Store.Path != "" {
		dst.StorePath = expandEnv(src.Store.Path)
	}
	if src.Store.RetentionHorizon != "" {
		d, err := time.ParseDuration(src.Store.RetentionHorizon)
		if err != nil {
			return fmt.Errorf("invalid store.retentionHorizon: %w", err)
		}
		dst.StoreRetentionHorizon = d
	}

	if src.Tracing.Enabled != nil {
		dst.TracingEnabled = *src.Tracing.Enabled
	}
	if src.Tracing.Exporter != "" {
		dst.TracingExporter = src.Tracing.Exporter
	}
	if src.Tracing.Endpoint != "" {
		dst.TracingEndpoint = expandEnv(src.Tracing.Endpoint)
	}
	if src.Tracing.Environment != "" {
		dst.TracingEnvironment = src.Tracing.Environment
	}
	if src.Tracing.SamplingRate > 0 {
		dst.TracingSamplingRate = src.Tracing.SamplingRate
	}

	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString("MEDIAVAULT_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = ParseString("MEDIAVAULT_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("MEDIAVAULT_LOG_SERVICE", cfg.LogService)

	cfg.HTTPListenAddr = ParseString("MEDIAVAULT_LISTEN", cfg.HTTPListenAddr)
	cfg.APIToken = ParseString("MEDIAVAULT_API_TOKEN", cfg.APIToken)
	if raw, ok := os.LookupEnv("MEDIAVAULT_ALLOWED_ORIGINS"); ok && strings.TrimSpace(raw) != "" {
		cfg.AllowedOrigins = parseCommaSeparated(raw, cfg.AllowedOrigins)
	}

	cfg.LibraryRoot = ParseString("MEDIAVAULT_LIBRARY_ROOT", cfg.LibraryRoot)
	cfg.LibraryDepth = ParseInt("MEDIAVAULT_LIBRARY_MAX_DEPTH", cfg.LibraryDepth)

	cfg.GlobalMaxConcurrency = ParseInt("MEDIAVAULT_GLOBAL_MAX_CONCURRENCY", cfg.GlobalMaxConcurrency)
	cfg.CancelGrace = ParseDuration("MEDIAVAULT_CANCEL_GRACE", cfg.CancelGrace)
	cfg.ShutdownGrace = ParseDuration("MEDIAVAULT_SHUTDOWN_GRACE", cfg.ShutdownGrace)

	cfg.StalenessTolerance = ParseDuration("MEDIAVAULT_STALENESS_TOLERANCE", cfg.StalenessTolerance)
	cfg.StatusCacheTTL = ParseDuration("MEDIAVAULT_STATUS_CACHE_TTL", cfg.StatusCacheTTL)
	cfg.CoverageCacheTTL = ParseDuration("MEDIAVAULT_COVERAGE_CACHE_TTL", cfg.CoverageCacheTTL)
	cfg.OrphanConfidenceFloor = ParseFloat("MEDIAVAULT_ORPHAN_CONFIDENCE_FLOOR", cfg.OrphanConfidenceFloor)
	cfg.BusSubscriberQueueSize = ParseInt("MEDIAVAULT_BUS_QUEUE_SIZE", cfg.BusSubscriberQueueSize)

	cfg.FFmpegBin = ParseString("MEDIAVAULT_FFMPEG_BIN", cfg.FFmpegBin)
	cfg.FFprobeBin = ParseString("MEDIAVAULT_FFPROBE_BIN", cfg.FFprobeBin)
	cfg.SubtitleBin = ParseString("MEDIAVAULT_SUBTITLE_BIN", cfg.SubtitleBin)
	cfg.FaceBin = ParseString("MEDIAVAULT_FACE_BIN", cfg.FaceBin)
	cfg.EmbeddingBin = ParseString("MEDIAVAULT_EMBEDDING_BIN", cfg.EmbeddingBin)

	cfg.MetricsEnabled = ParseBool("MEDIAVAULT_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("MEDIAVAULT_METRICS_LISTEN", cfg.MetricsAddr)

	cfg.StoreBackend = ParseString("MEDIAVAULT_STORE_BACKEND", cfg.StoreBackend)
	cfg.StorePath = ParseString("MEDIAVAULT_STORE_PATH", cfg.StorePath)
	cfg.StoreRetentionHorizon = ParseDuration("MEDIAVAULT_STORE_RETENTION_HORIZON", cfg.StoreRetentionHorizon)

	cfg.TracingEnabled = ParseBool("MEDIAVAULT_TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingExporter = ParseString("MEDIAVAULT_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("MEDIAVAULT_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingEnvironment = ParseString("MEDIAVAULT_TRACING_ENVIRONMENT", cfg.TracingEnvironment)
	cfg.TracingSamplingRate = ParseFloat("MEDIAVAULT_TRACING_SAMPLING_RATE", cfg.TracingSamplingRate)
}

// String renders a redacted representation suitable for startup logs.
func (c AppConfig) String() string {
	token := "unset"
	if c.APIToken != "" {
		token = "***redacted***"
	}
	return fmt.Sprintf(
		"dataDir=%s listen=%s libraryRoot=%s globalMax=%d storeBackend=%s apiToken=%s",
		c.DataDir, c.HTTPListenAddr, c.LibraryRoot, c.GlobalMaxConcurrency, c.StoreBackend, token,
	)
}
