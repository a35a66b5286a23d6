// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads and validates the typed configuration for the
// artifact generation and job orchestration service.
package config

import "time"

// FileConfig mirrors the on-disk YAML document. All fields are optional;
// zero values mean "not set in the file" and defer to defaults or env.
type FileConfig struct {
	DataDir    string `yaml:"dataDir,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	HTTP      HTTPFileConfig      `yaml:"http,omitempty"`
	Library   LibraryFileConfig   `yaml:"library,omitempty"`
	Scheduler SchedulerFileConfig `yaml:"scheduler,omitempty"`
	Artifact  ArtifactFileConfig  `yaml:"artifact,omitempty"`
	Coverage  CoverageFileConfig  `yaml:"coverage,omitempty"`
	Orphan    OrphanFileConfig    `yaml:"orphan,omitempty"`
	Bus       BusFileConfig       `yaml:"bus,omitempty"`
	Tools     ToolsFileConfig     `yaml:"tools,omitempty"`
	Metrics   MetricsFileConfig   `yaml:"metrics,omitempty"`
	Store     StoreFileConfig     `yaml:"store,omitempty"`
	Tracing   TracingFileConfig   `yaml:"tracing,omitempty"`
}

// HTTPFileConfig configures the external HTTP interface.
type HTTPFileConfig struct {
	ListenAddr     string   `yaml:"listenAddr,omitempty"`
	Token          string   `yaml:"token,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LibraryFileConfig declares the media root(s) to index.
type LibraryFileConfig struct {
	Root     string   `yaml:"root,omitempty"`
	MaxDepth int      `yaml:"maxDepth,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty"`
}

// SchedulerFileConfig declares concurrency caps and timeouts.
type SchedulerFileConfig struct {
	GlobalMaxConcurrency int               `yaml:"globalMaxConcurrency,omitempty"`
	ToolCaps             map[string]int    `yaml:"toolCaps,omitempty"`
	ToolTimeouts         map[string]string `yaml:"toolTimeouts,omitempty"`
	CancelGrace          string            `yaml:"cancelGrace,omitempty"`
	ShutdownGrace        string            `yaml:"shutdownGrace,omitempty"`
}

// ArtifactFileConfig declares probe/cache tuning.
type ArtifactFileConfig struct {
	StalenessTolerance string `yaml:"stalenessTolerance,omitempty"`
	StatusCacheTTL     string `yaml:"statusCacheTTL,omitempty"`
}

// CoverageFileConfig declares coverage cache tuning.
type CoverageFileConfig struct {
	CacheTTL string `yaml:"cacheTTL,omitempty"`
}

// OrphanFileConfig declares repair-suggestion tuning.
type OrphanFileConfig struct {
	ConfidenceFloor *float64 `yaml:"confidenceFloor,omitempty"`
}

// BusFileConfig declares event bus backpressure tuning.
type BusFileConfig struct {
	SubscriberQueueSize int `yaml:"subscriberQueueSize,omitempty"`
}

// ToolsFileConfig declares external binary paths used by producers.
type ToolsFileConfig struct {
	FFmpegBin    string `yaml:"ffmpegBin,omitempty"`
	FFprobeBin   string `yaml:"ffprobeBin,omitempty"`
	SubtitleBin  string `yaml:"subtitleBin,omitempty"`
	FaceBin      string `yaml:"faceBin,omitempty"`
	EmbeddingBin string `yaml:"embeddingBin,omitempty"`
}

// MetricsFileConfig configures the Prometheus endpoint.
type MetricsFileConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// StoreFileConfig configures the job store backend.
type StoreFileConfig struct {
	Backend          string `yaml:"backend,omitempty"` // "memory" or "sqlite"
	Path             string `yaml:"path,omitempty"`
	RetentionHorizon string `yaml:"retentionHorizon,omitempty"`
}

// TracingFileConfig configures OpenTelemetry trace export.
type TracingFileConfig struct {
	Enabled      *bool   `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"` // "grpc" or "http"
	Endpoint     string  `yaml:"endpoint,omitempty"`
	Environment  string  `yaml:"environment,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// AppConfig is the fully resolved, validated runtime configuration.
type AppConfig struct {
	DataDir    string
	LogLevel   string
	LogService string

	HTTPListenAddr string
	APIToken       string
	AllowedOrigins []string

	LibraryRoot    string
	LibraryDepth   int
	LibraryExclude []string

	GlobalMaxConcurrency int
	ToolCaps             map[string]int
	ToolTimeouts         map[string]time.Duration
	CancelGrace          time.Duration
	ShutdownGrace        time.Duration

	StalenessTolerance time.Duration
	StatusCacheTTL     time.Duration

	CoverageCacheTTL time.Duration

	OrphanConfidenceFloor float64

	BusSubscriberQueueSize int

	FFmpegBin    string
	FFprobeBin   string
	SubtitleBin  string
	FaceBin      string
	EmbeddingBin string

	MetricsEnabled bool
	MetricsAddr    string

	StoreBackend          string
	StorePath             string
	StoreRetentionHorizon time.Duration

	TracingEnabled      bool
	TracingExporter     string
	TracingEndpoint     string
	TracingEnvironment  string
	TracingSamplingRate float64
}

// Default tool class names used as ToolCaps/ToolTimeouts map keys.
const (
	ToolClassFFmpeg          = "ffmpeg"
	ToolClassFFprobe         = "ffprobe"
	ToolClassSubtitleBackend = "subtitle-backend"
	ToolClassFaceBackend     = "face-backend"
	ToolClassPure            = "pure"
)
