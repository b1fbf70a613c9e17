package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "KNOWD_"

// Load loads configuration from the YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KNOWD_MAX_RESULTS, KNOWD_EMBEDDING_PROVIDER, ...)
//  2. YAML config file (~/.knowd/config.yaml)
//  3. Hardcoded defaults
//
// The configPath parameter specifies the YAML file to load. If empty, the
// default path is used. A missing file is not an error; defaults apply.
//
// Before reading the environment, Load sources ~/.knowd/.env and a .env file
// in the current directory if present, without overriding variables that are
// already set. This is where API keys typically live.
func Load(configPath string) (*Config, error) {
	loadDotEnv()

	k := koanf.New(".")

	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	if content, err := os.ReadFile(configPath); err == nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	// Environment variables override file values.
	// KNOWD_EMBEDDING_MODEL -> embedding.model, KNOWD_MAX_RESULTS -> max_results
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if rest, ok := strings.CutPrefix(key, "embedding_"); ok {
			return "embedding." + rest
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg, k.Exists("similarity_threshold"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv sources .env files without overriding existing variables.
func loadDotEnv() {
	if path := EnvFilePath(); fileExists(path) {
		_ = godotenv.Load(path)
	}
	if fileExists(".env") {
		_ = godotenv.Load()
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EnsureBaseDir creates the knowd config directory if it doesn't exist.
func EnsureBaseDir() error {
	if err := os.MkdirAll(BaseDir(), 0700); err != nil {
		return fmt.Errorf("creating config directory %s: %w", BaseDir(), err)
	}
	return nil
}

// SetAPIKey persists an API key to the .env file, creating or updating the
// variable in place. Other variables in the file are preserved.
func SetAPIKey(envVar, apiKey string) error {
	if envVar == "" {
		return fmt.Errorf("%w: api key environment variable name is empty", ErrInvalidConfig)
	}
	if err := EnsureBaseDir(); err != nil {
		return err
	}

	path := EnvFilePath()
	vars := map[string]string{}
	if fileExists(path) {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		vars = existing
	}
	vars[envVar] = apiKey

	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Setenv(envVar, apiKey)
}
