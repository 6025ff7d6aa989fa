// Package config provides configuration loading and management for
// CadenceForge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mosaicworks/cadenceforge/llm"
)

// Config is the complete CadenceForge configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	NATS     NATSConfig     `yaml:"nats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ModelConfig configures the generation endpoints. The first endpoint
// is the primary; later entries are fallbacks.
type ModelConfig struct {
	Endpoints []llm.Endpoint  `yaml:"endpoints"`
	Retry     llm.RetryConfig `yaml:"retry"`
}

// PipelineConfig configures the retry orchestration.
type PipelineConfig struct {
	// MaxRetries is the generation attempt budget per session.
	MaxRetries int `yaml:"max_retries"`
	// QualityThreshold is the minimum acceptable overall score.
	QualityThreshold float64 `yaml:"quality_threshold"`
	// TimeoutPerAttempt bounds each generation call.
	TimeoutPerAttempt time.Duration `yaml:"timeout_per_attempt"`
	// StrictMode skips the basic enhancement level.
	StrictMode bool `yaml:"strict_mode"`
	// DisableCorrection turns off the auto-correction pass.
	DisableCorrection bool `yaml:"disable_correction"`
	// DisableFallback turns off the template fallback.
	DisableFallback bool `yaml:"disable_fallback"`
}

// NATSConfig configures session event publishing. An empty URL disables
// publishing entirely.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults: a local
// Ollama-style endpoint, the standard retry budget, and metrics off.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Endpoints: []llm.Endpoint{
				{
					Name:  "local",
					URL:   "http://localhost:11434/v1",
					Model: "qwen2.5-coder:32b",
				},
			},
			Retry: llm.DefaultRetryConfig(),
		},
		Pipeline: PipelineConfig{
			MaxRetries:        3,
			QualityThreshold:  80,
			TimeoutPerAttempt: 60 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9190",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Model.Endpoints) == 0 {
		return fmt.Errorf("model.endpoints is required")
	}
	for i, ep := range c.Model.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("model.endpoints[%d].url is required", i)
		}
		if ep.Model == "" {
			return fmt.Errorf("model.endpoints[%d].model is required", i)
		}
	}
	if c.Pipeline.MaxRetries < 1 {
		return fmt.Errorf("pipeline.max_retries must be at least 1")
	}
	if c.Pipeline.QualityThreshold < 0 || c.Pipeline.QualityThreshold > 100 {
		return fmt.Errorf("pipeline.quality_threshold must be between 0 and 100")
	}
	if c.Pipeline.TimeoutPerAttempt <= 0 {
		return fmt.Errorf("pipeline.timeout_per_attempt must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file layered over the
// defaults. ${VAR} references are expanded from the environment before
// parsing, so secrets like API keys can live in the process environment
// or a .env file instead of the config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile writes the configuration as YAML, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge overlays another config onto this one; other's non-zero values
// win.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Model.Endpoints) > 0 {
		c.Model.Endpoints = other.Model.Endpoints
	}
	if other.Model.Retry.MaxAttempts != 0 {
		c.Model.Retry.MaxAttempts = other.Model.Retry.MaxAttempts
	}
	if other.Model.Retry.BackoffBase != 0 {
		c.Model.Retry.BackoffBase = other.Model.Retry.BackoffBase
	}
	if other.Model.Retry.BackoffMultiplier != 0 {
		c.Model.Retry.BackoffMultiplier = other.Model.Retry.BackoffMultiplier
	}
	if other.Model.Retry.MaxBackoff != 0 {
		c.Model.Retry.MaxBackoff = other.Model.Retry.MaxBackoff
	}

	if other.Pipeline.MaxRetries != 0 {
		c.Pipeline.MaxRetries = other.Pipeline.MaxRetries
	}
	if other.Pipeline.QualityThreshold != 0 {
		c.Pipeline.QualityThreshold = other.Pipeline.QualityThreshold
	}
	if other.Pipeline.TimeoutPerAttempt != 0 {
		c.Pipeline.TimeoutPerAttempt = other.Pipeline.TimeoutPerAttempt
	}
	if other.Pipeline.StrictMode {
		c.Pipeline.StrictMode = true
	}
	if other.Pipeline.DisableCorrection {
		c.Pipeline.DisableCorrection = true
	}
	if other.Pipeline.DisableFallback {
		c.Pipeline.DisableFallback = true
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	if other.Metrics.Enabled {
		c.Metrics.Enabled = true
	}
	if other.Metrics.Listen != "" {
		c.Metrics.Listen = other.Metrics.Listen
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}
