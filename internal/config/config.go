// Package config loads the weft configuration from YAML and serves
// per-tenant scoring weights with hot reload.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jordanhubbard/weft/internal/guardrail"
)

// Config is the main configuration for the weft system.
type Config struct {
	Provider  ProviderConfig   `yaml:"provider"`
	Redis     RedisConfig      `yaml:"redis"`
	Database  DatabaseConfig   `yaml:"database"`
	Nats      NatsConfig       `yaml:"nats"`
	Pipeline  PipelineConfig   `yaml:"pipeline"`
	Scoring   ScoringConfig    `yaml:"scoring"`
	Guardrail guardrail.Policy `yaml:"guardrail"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
}

// ProviderConfig configures the language-model collaborator.
type ProviderConfig struct {
	Type            string        `yaml:"type"` // "openai" or "ollama"
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	ClassifyTimeout time.Duration `yaml:"classify_timeout"`
	RegenTimeout    time.Duration `yaml:"regen_timeout"`
}

// RedisConfig configures the session store backend.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// DatabaseConfig configures Postgres persistence.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// NatsConfig configures the regeneration job bus.
type NatsConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig configures the decision pipeline.
type PipelineConfig struct {
	// TargetComponent is the component the pipeline personalizes.
	TargetComponent string `yaml:"target_component"`
	// UseLLMClassifier selects the external strategy; the rule chain is
	// always the fallback.
	UseLLMClassifier bool `yaml:"use_llm_classifier"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns a runnable local configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:            "ollama",
			Endpoint:        "http://localhost:11434",
			Model:           "llama3.2",
			ClassifyTimeout: 5 * time.Second,
			RegenTimeout:    30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			SessionTTL: 24 * time.Hour,
		},
		Nats: NatsConfig{
			URL:     "nats://localhost:4222",
			Timeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			TargetComponent: "hero",
		},
		Scoring:   DefaultScoringConfig(),
		Guardrail: guardrail.DefaultPolicy(),
	}
}

// LoadFromFile reads YAML configuration, applying defaults for anything
// unset and environment overrides for addresses and secrets.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WEFT_PROVIDER_ENDPOINT"); v != "" {
		c.Provider.Endpoint = v
	}
	if v := os.Getenv("WEFT_PROVIDER_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("WEFT_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("WEFT_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("WEFT_NATS_URL"); v != "" {
		c.Nats.URL = v
	}
}
