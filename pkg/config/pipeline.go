package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineConfig holds the tuning knobs for the analysis pipeline.
// Durations are milliseconds; the CLI converts them when wiring the
// invoker and cache.
type PipelineConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`

	MaxRetries              int `yaml:"max_retries,omitempty"`
	LLMTimeoutMs            int `yaml:"llm_timeout_ms,omitempty"`
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold,omitempty"`
	BreakerResetTimeoutMs   int `yaml:"breaker_reset_timeout_ms,omitempty"`

	CacheTTLMs   int `yaml:"cache_ttl_ms,omitempty"`
	CacheMaxSize int `yaml:"cache_max_size,omitempty"`

	MinEvidenceConfidence float64 `yaml:"min_evidence_confidence,omitempty"`
	MaxEvidenceItems      int     `yaml:"max_evidence_items,omitempty"`

	Debug bool `yaml:"debug,omitempty"`
}

// LoadPipelineConfig reads pipeline configuration from a YAML file.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyPipelineDefaults(&cfg)
	return &cfg, nil
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() *PipelineConfig {
	cfg := &PipelineConfig{}
	applyPipelineDefaults(cfg)
	return cfg
}

func applyPipelineDefaults(cfg *PipelineConfig) {
	if cfg == nil {
		return
	}
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.LLMTimeoutMs == 0 {
		cfg.LLMTimeoutMs = 30000
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	if cfg.BreakerResetTimeoutMs == 0 {
		cfg.BreakerResetTimeoutMs = 30000
	}
	if cfg.CacheTTLMs == 0 {
		cfg.CacheTTLMs = 300000
	}
	if cfg.CacheMaxSize == 0 {
		cfg.CacheMaxSize = 100
	}
	if cfg.MinEvidenceConfidence == 0 {
		cfg.MinEvidenceConfidence = 0.3
	}
	if cfg.MaxEvidenceItems == 0 {
		cfg.MaxEvidenceItems = 10
	}
}

// Validate returns every problem with the configuration, empty if valid.
func (cfg *PipelineConfig) Validate() []error {
	var errs []error

	switch cfg.Provider {
	case "anthropic", "openai", "google", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", cfg.Provider))
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative"))
	}
	if cfg.LLMTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("llm_timeout_ms must not be negative"))
	}
	if cfg.BreakerFailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("breaker_failure_threshold must be at least 1"))
	}
	if cfg.MinEvidenceConfidence < 0 || cfg.MinEvidenceConfidence > 1 {
		errs = append(errs, fmt.Errorf("min_evidence_confidence must be within [0,1]"))
	}
	if cfg.MaxEvidenceItems < 1 {
		errs = append(errs, fmt.Errorf("max_evidence_items must be at least 1"))
	}
	return errs
}
