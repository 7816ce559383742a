// Package config loads mnemo configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama, mock
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Dims      int    `yaml:"dims"`
	CacheSize int    `yaml:"cache_size"`
}

// ClassifierConfig selects and configures the chat model used for
// classification. Provider "none" disables classification; categories
// must then be supplied explicitly.
type ClassifierConfig struct {
	Provider string `yaml:"provider"` // openai, anthropic, none
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// SessionConfig holds working memory defaults.
type SessionConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// Config is the full mnemo configuration.
type Config struct {
	DBPath     string           `yaml:"db_path"`
	VectorPath string           `yaml:"vector_path"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Session    SessionConfig    `yaml:"session"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".mnemo")
	return &Config{
		DBPath:     filepath.Join(base, "mnemo.db"),
		VectorPath: filepath.Join(base, "vectors"),
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Model:     "",
			CacheSize: 1024,
		},
		Classifier: ClassifierConfig{
			Provider: "none",
		},
		Session: SessionConfig{
			MaxTokens: 8000,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// it exists; an empty path checks $MNEMO_CONFIG and ~/.mnemo/config.yaml),
// then MNEMO_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MNEMO_CONFIG")
	}
	if path == "" {
		home, _ := os.UserHomeDir()
		candidate := filepath.Join(home, ".mnemo", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dest *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dest = v
		}
	}
	setInt := func(dest *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dest = n
			}
		}
	}

	setStr(&c.DBPath, "MNEMO_DB")
	setStr(&c.VectorPath, "MNEMO_VECTOR_DIR")

	setStr(&c.Embedding.Provider, "MNEMO_EMBEDDING_PROVIDER")
	setStr(&c.Embedding.APIKey, "MNEMO_EMBEDDING_API_KEY")
	setStr(&c.Embedding.BaseURL, "MNEMO_EMBEDDING_BASE_URL")
	setStr(&c.Embedding.Model, "MNEMO_EMBEDDING_MODEL")
	setInt(&c.Embedding.Dims, "MNEMO_EMBEDDING_DIMS")

	setStr(&c.Classifier.Provider, "MNEMO_CLASSIFIER_PROVIDER")
	setStr(&c.Classifier.APIKey, "MNEMO_CLASSIFIER_API_KEY")
	setStr(&c.Classifier.BaseURL, "MNEMO_CLASSIFIER_BASE_URL")
	setStr(&c.Classifier.Model, "MNEMO_CLASSIFIER_MODEL")

	setInt(&c.Session.MaxTokens, "MNEMO_SESSION_MAX_TOKENS")

	// Provider keys fall through to the usual variables.
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Classifier.APIKey == "" {
		switch c.Classifier.Provider {
		case "openai":
			c.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.Classifier.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}
