// Package application wires the trust engine's numeric components into
// request-level services: configuration loading, method registration,
// the explanation pipeline, calibration lifecycle, and windowed metric
// snapshots.
package application

import (
	"time"

	"github.com/attest-ml/go-attest/infrastructure/calibration"
	"github.com/attest-ml/go-attest/infrastructure/evalmetrics"
	"github.com/attest-ml/go-attest/infrastructure/explain"
	"github.com/attest-ml/go-attest/infrastructure/uncertainty"
)

// EngineConfig defines the complete specification for a trust engine
// deployment and serves as the primary configuration entry point for
// the system.
// Use EngineConfig to configure every pipeline stage from one YAML
// document; zero values fall back to the per-component defaults.
type EngineConfig struct {
	// Server configures the HTTP API surface.
	Server ServerConfig `yaml:"server" validate:"required"`
	// Model locates the external detection model service. When the
	// endpoint is empty, the explanation routes are disabled and the
	// deployment serves calibration and metrics only.
	Model ModelConfig `yaml:"model"`
	// Explain configures consensus aggregation and the parallel
	// attribution runner.
	Explain ExplainConfig `yaml:"explain" validate:"required"`
	// Uncertainty configures Monte Carlo dropout estimation.
	Uncertainty uncertainty.Config `yaml:"uncertainty"`
	// Calibration configures ECE binning and temperature fitting.
	Calibration calibration.Config `yaml:"calibration"`
	// Metrics configures windowed business, detection, and
	// segmentation aggregation.
	Metrics MetricsConfig `yaml:"metrics" validate:"required"`
	// Storage configures the persistent history stores.
	Storage StorageConfig `yaml:"storage" validate:"required"`
	// Cache configures the snapshot cache backend.
	Cache CacheConfig `yaml:"cache" validate:"required"`
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener and request deadlines.
type ServerConfig struct {
	// Addr is the listen address in host:port form.
	Addr string `yaml:"addr" validate:"required,hostname_port"`
	// ReadTimeout and WriteTimeout bound request handling; both are
	// duration strings such as "15s".
	ReadTimeout  string `yaml:"read_timeout" validate:"omitempty,duration"`
	WriteTimeout string `yaml:"write_timeout" validate:"omitempty,duration"`
}

// ModelConfig locates the detection model serving endpoint.
type ModelConfig struct {
	// Endpoint is the model service base URL (e.g.
	// "http://model:9000"). Empty disables explanation serving.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// NumClasses is the size of the model's probability vector,
	// required when Endpoint is set.
	NumClasses int `yaml:"num_classes" validate:"required_with=Endpoint,omitempty,min=2"`
	// RequestTimeout bounds one inference call, as a duration string.
	RequestTimeout string `yaml:"request_timeout" validate:"omitempty,duration"`
	// Methods lists the attribution methods to run, by registry type.
	Methods []MethodConfig `yaml:"methods" validate:"omitempty,dive"`
}

// MethodConfig selects and parameterizes one attribution method.
type MethodConfig struct {
	// Type is the registry key (e.g. "occlusion").
	Type string `yaml:"type" validate:"required"`
	// Name is the instance name reported on produced maps; defaults to
	// Type.
	Name string `yaml:"name" validate:"omitempty,min=1,max=100"`
	// Parameters holds method-specific settings.
	Parameters map[string]any `yaml:"parameters"`
}

// ExplainConfig groups the aggregator settings with the runner's
// execution limits.
type ExplainConfig struct {
	Aggregator explain.AggregatorConfig `yaml:"aggregator" validate:"required"`
	// MethodTimeout is the per-attribution-method deadline as a
	// duration string such as "30s".
	MethodTimeout string `yaml:"method_timeout" validate:"omitempty,duration"`
	// MaxConcurrency bounds how many attribution methods run at once.
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=0"`
}

// RunnerConfig converts the YAML-level settings into the runner's
// native configuration.
func (c ExplainConfig) RunnerConfig() explain.RunnerConfig {
	return explain.RunnerConfig{
		MethodTimeout:  parseDuration(c.MethodTimeout),
		MaxConcurrency: c.MaxConcurrency,
	}
}

// MetricsConfig wraps the evaluation engine settings with snapshot
// caching behavior.
type MetricsConfig struct {
	Engine evalmetrics.Config `yaml:"engine" validate:"required"`
	// SnapshotTTL is how long a computed snapshot stays cached, as a
	// duration string such as "5m". Zero disables expiry.
	SnapshotTTL string `yaml:"snapshot_ttl" validate:"omitempty,duration"`
}

// StorageConfig locates the SQLite history database.
type StorageConfig struct {
	// Path is the database file path, or ":memory:" for an ephemeral
	// store.
	Path string `yaml:"path" validate:"required"`
}

// CacheConfig selects and configures the snapshot cache backend.
type CacheConfig struct {
	// Backend selects the cache implementation.
	Backend string `yaml:"backend" validate:"required,oneof=memory redis"`
	// RedisAddr is the Redis endpoint, required for the redis backend.
	RedisAddr string `yaml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
	// Namespace prefixes every cache key; defaults to "snapshots".
	Namespace string `yaml:"namespace" validate:"omitempty,min=1,max=100"`
}

// LoggingConfig controls the zap logger construction.
type LoggingConfig struct {
	// Level is the minimum emitted level.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// DefaultEngineConfig returns an EngineConfig with production-ready
// defaults for every component.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "15s",
			WriteTimeout: "30s",
		},
		Model: ModelConfig{
			RequestTimeout: "10s",
			Methods:        []MethodConfig{{Type: "occlusion"}},
		},
		Explain: ExplainConfig{
			Aggregator:     explain.DefaultAggregatorConfig(),
			MethodTimeout:  "30s",
			MaxConcurrency: explain.DefaultRunnerConcurrency,
		},
		Uncertainty: uncertainty.DefaultConfig(),
		Calibration: calibration.DefaultConfig(),
		Metrics: MetricsConfig{
			Engine:      evalmetrics.DefaultConfig(),
			SnapshotTTL: "5m",
		},
		Storage: StorageConfig{Path: "attest.db"},
		Cache:   CacheConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// parseDuration converts a validated duration string, returning zero
// for the empty string so component defaults apply.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
