// Package config loads animus configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig selects the embedding provider for memory recall.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "ollama", "openai" or "" (disabled)
	Model    string `yaml:"model"`
	Dims     int    `yaml:"dims"`
}

// CortexConfig selects the local generation backend.
type CortexConfig struct {
	Provider    string  `yaml:"provider"` // "ollama" or "template"
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Config is the full animus configuration.
type Config struct {
	Endpoint       string          `yaml:"endpoint"`
	AuthToken      string          `yaml:"auth_token"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	DBPath         string          `yaml:"db_path"`
	Embedding      EmbeddingConfig `yaml:"embedding"`
	Cortex         CortexConfig    `yaml:"cortex"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Endpoint:       "http://localhost:8080",
		TimeoutSeconds: 10,
		DBPath:         filepath.Join(home, ".animus", "animus.db"),
		Cortex: CortexConfig{
			Provider:    "template",
			Model:       "smollm2-135m",
			MaxTokens:   512,
			Temperature: 0.7,
		},
	}
}

// Load reads the config file at path (defaults apply when the file does not
// exist) and then applies ANIMUS_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ANIMUS_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("ANIMUS_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("ANIMUS_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ANIMUS_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("ANIMUS_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("ANIMUS_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("ANIMUS_CORTEX_PROVIDER"); v != "" {
		cfg.Cortex.Provider = v
	}
	if v := os.Getenv("ANIMUS_CORTEX_MODEL"); v != "" {
		cfg.Cortex.Model = v
	}
}

// Timeout returns the per-request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
