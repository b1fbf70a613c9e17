// Package embeddings provides embedding generation via multiple providers.
//
// Providers convert text into fixed-dimension float vectors through remote
// APIs (OpenAI, Gemini). The dimension is known statically per (provider,
// model) pair, so callers can size vector collections without a network
// call. An API key whose value starts with "test-" switches the provider
// into a deterministic offline mode that returns a constant vector of the
// correct dimension; the rest of the system is testable without credentials.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/config"
)

var (
	// ErrAPIKeyMissing indicates no credential is configured for the provider.
	ErrAPIKeyMissing = errors.New("api key not configured")

	// ErrRequestFailed wraps transport or remote API failures.
	ErrRequestFailed = errors.New("embedding request failed")

	// ErrInvalidResponse indicates a malformed API response.
	ErrInvalidResponse = errors.New("invalid embedding response")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid provider configuration")
)

// testKeyPrefix marks credentials that short-circuit to deterministic
// vectors without any network call.
const testKeyPrefix = "test-"

// Provider is the interface for embedding providers.
//
// EmbedDocuments is semantically equivalent to mapping EmbedQuery over the
// input but may batch the remote call.
type Provider interface {
	// EmbedQuery generates an embedding for a single text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension for the configured model
	// without making a network call.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "openai" or "gemini".
	Provider string

	// Model is the embedding model name.
	Model string

	// APIKeyEnv is the environment variable holding the API key.
	APIKeyEnv string

	// BaseURL overrides the provider API endpoint (used in tests).
	BaseURL string
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIProvider(cfg, logger), nil
	case config.ProviderGemini:
		return NewGeminiProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// openaiModelDimensions maps OpenAI model names to embedding dimensions.
var openaiModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// geminiModelDimensions maps Gemini model names to embedding dimensions.
var geminiModelDimensions = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

// modelDimension returns the dimension for a (provider, model) pair,
// falling back to the provider default for unrecognized models.
func modelDimension(provider, model string) int {
	switch provider {
	case config.ProviderGemini:
		if dim, ok := geminiModelDimensions[model]; ok {
			return dim
		}
		return 768
	default:
		if dim, ok := openaiModelDimensions[model]; ok {
			return dim
		}
		return 1536
	}
}

// isTestKey reports whether the credential selects deterministic test mode.
func isTestKey(key string) bool {
	return strings.HasPrefix(key, testKeyPrefix)
}

// deterministicVector returns the fixed test-mode embedding: the first
// basis vector of the model dimension. It is already unit-length, so
// backend normalization leaves it untouched and identical texts compare
// at exactly 1.0 cosine similarity, even in float32.
func deterministicVector(dim int) []float32 {
	v := make([]float32, dim)
	v[0] = 1
	return v
}

// missingKeyError builds the first-run auth error. The message names the
// expected environment variable and the alternative configuration paths.
func missingKeyError(envVar string) error {
	return fmt.Errorf("%w: set %s in your environment, add it to %s, or run 'knowd config --set-api-key'",
		ErrAPIKeyMissing, envVar, config.EnvFilePath())
}
