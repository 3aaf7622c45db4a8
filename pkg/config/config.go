package config

import (
	"fmt"
	"os"
	"time"

	"github.com/modeshift-ai/modeshift/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all Modeshift engine configuration.
type Config struct {
	DBPath    string                   `yaml:"db_path"`
	Logging   LoggingConfig            `yaml:"logging"`
	Providers []ProviderConfig         `yaml:"providers"`
	Models    []models.ModelDescriptor `yaml:"models"`
	Fallback  FallbackConfig           `yaml:"fallback"`
	Cache     CacheConfig              `yaml:"cache"`
	Budget    BudgetConfig             `yaml:"budget"`
	Audit     models.AuditConfig       `yaml:"audit"`
	Defaults  models.SamplingParams    `yaml:"defaults"`
	Timeout   time.Duration            `yaml:"timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ProviderConfig defines an upstream text-generation backend.
// Type is "openai" (default, any OpenAI-compatible API), "anthropic", or
// "ollama" for a locally-hosted inference server.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// FallbackConfig controls the fallback resolver.
type FallbackConfig struct {
	// CrossProvider gates the last-resort hop to the local provider when no
	// candidate on the requested provider family succeeds.
	CrossProvider bool `yaml:"cross_provider"`
	// LocalProvider names the provider used as last resort (typically the
	// ollama entry). Ignored unless CrossProvider is true.
	LocalProvider string `yaml:"local_provider"`
	// LocalModel is the model dispatched to the local provider.
	LocalModel string `yaml:"local_model"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"` // "sqlite" (default) or "redis"
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig locates the shared redis cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BudgetConfig controls budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "modeshift.db",
		Logging: LoggingConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "sqlite",
			TTL:     24 * time.Hour,
		},
		Budget: BudgetConfig{
			Enabled: false,
		},
		Defaults: models.SamplingParams{
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Timeout: 60 * time.Second,
	}
}

// Load reads a YAML config file, expands environment variables, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks referential integrity between providers, models, and
// fallback policy.
func (c *Config) Validate() error {
	providerIndex := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		if providerIndex[p.Name] {
			return fmt.Errorf("duplicate provider %q", p.Name)
		}
		switch p.Type {
		case "", "openai", "anthropic", "ollama":
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
		providerIndex[p.Name] = true
	}

	modelIndex := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if !providerIndex[m.Provider] {
			return fmt.Errorf("model %q: unknown provider %q", m.Model, m.Provider)
		}
		if modelIndex[m.Key()] {
			return fmt.Errorf("duplicate model %q", m.Key())
		}
		modelIndex[m.Key()] = true
	}
	// Fallback siblings must stay on the same provider and must exist.
	for _, m := range c.Models {
		if m.FallbackModel == "" {
			continue
		}
		if !modelIndex[m.Provider+"/"+m.FallbackModel] {
			return fmt.Errorf("model %q: fallback model %q not configured on provider %q",
				m.Model, m.FallbackModel, m.Provider)
		}
	}

	if c.Fallback.CrossProvider {
		if c.Fallback.LocalProvider == "" || c.Fallback.LocalModel == "" {
			return fmt.Errorf("fallback: cross_provider requires local_provider and local_model")
		}
		if !providerIndex[c.Fallback.LocalProvider] {
			return fmt.Errorf("fallback: unknown local provider %q", c.Fallback.LocalProvider)
		}
	}

	switch c.Cache.Backend {
	case "", "sqlite", "redis":
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache: redis backend requires redis.addr")
	}

	return nil
}

// ProviderByName returns the provider config with the given name.
func (c *Config) ProviderByName(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
