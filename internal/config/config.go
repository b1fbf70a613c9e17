// Package config provides configuration loading for knowd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Supported embedding provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Model is the embedding model identifier.
	Model string `koanf:"model"`

	// Provider is the embedding provider: "openai" or "gemini".
	Provider string `koanf:"provider"`

	// APIKeyEnv is the environment variable holding the API key.
	// Defaults to the provider's conventional variable.
	APIKeyEnv string `koanf:"api_key_env"`
}

// Config is the immutable application configuration snapshot.
// It is loaded once at process start and consumed read-only.
type Config struct {
	Embedding EmbeddingConfig `koanf:"embedding"`

	// DBPath is the directory holding the vector store.
	DBPath string `koanf:"db_path"`

	// MaxResults is the default result count for searches that omit a limit.
	MaxResults int `koanf:"max_results"`

	// SimilarityThreshold drops search results scoring below it.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// ExportFormats lists supported export format tags.
	ExportFormats []string `koanf:"export_formats"`
}

// applyDefaults sets default values for missing configuration fields.
// thresholdSet reports whether similarity_threshold was present in any
// source; an explicit 0.0 is a valid threshold and must not be raised to
// the default.
func applyDefaults(cfg *Config, thresholdSet bool) {
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderGemini:
			cfg.Embedding.Model = "text-embedding-004"
		default:
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}
	if cfg.Embedding.APIKeyEnv == "" {
		switch cfg.Embedding.Provider {
		case ProviderGemini:
			cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
		default:
			cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(BaseDir(), "db")
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 10
	}
	if cfg.SimilarityThreshold == 0 && !thresholdSet {
		cfg.SimilarityThreshold = 0.7
	}
	if len(cfg.ExportFormats) == 0 {
		cfg.ExportFormats = []string{"json", "csv", "markdown"}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalidConfig, c.MaxResults)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0,1], got %g", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	}
	return nil
}

// BaseDir returns the knowd configuration directory.
// KNOWD_HOME overrides the default ~/.knowd (used by tests).
func BaseDir() string {
	if dir := os.Getenv("KNOWD_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".knowd"
	}
	return filepath.Join(home, ".knowd")
}

// DefaultConfigPath returns the default YAML config file path.
func DefaultConfigPath() string {
	return filepath.Join(BaseDir(), "config.yaml")
}

// EnvFilePath returns the path of the .env file consulted for API keys.
func EnvFilePath() string {
	return filepath.Join(BaseDir(), ".env")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
