package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"
)

// defaultGeminiBaseURL is the Google Generative Language API endpoint.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider generates embeddings via the Gemini embedContent API.
type GeminiProvider struct {
	cfg    ProviderConfig
	client *http.Client
	logger *zap.Logger

	initOnce sync.Once
	apiKey   string
	initErr  error
}

// NewGeminiProvider creates a Gemini embedding provider.
func NewGeminiProvider(cfg ProviderConfig, logger *zap.Logger) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiProvider{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger,
	}
}

// resolveKey reads the API key from the environment exactly once.
func (p *GeminiProvider) resolveKey() (string, error) {
	p.initOnce.Do(func() {
		key := os.Getenv(p.cfg.APIKeyEnv)
		if key == "" {
			p.initErr = missingKeyError(p.cfg.APIKeyEnv)
			return
		}
		p.apiKey = key
	})
	return p.apiKey, p.initErr
}

// Dimension returns the embedding dimension for the configured model.
func (p *GeminiProvider) Dimension() int {
	return modelDimension("gemini", p.cfg.Model)
}

type geminiContent struct {
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

func newGeminiContent(text string) geminiContent {
	var c geminiContent
	c.Parts = append(c.Parts, struct {
		Text string `json:"text"`
	}{Text: text})
	return c
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

// EmbedQuery generates an embedding for a single text.
func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	key, err := p.resolveKey()
	if err != nil {
		return nil, err
	}
	if isTestKey(key) {
		return deterministicVector(p.Dimension()), nil
	}

	var parsed struct {
		Embedding geminiEmbedding `json:"embedding"`
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", p.cfg.BaseURL, p.cfg.Model)
	if err := p.post(ctx, key, url, geminiEmbedRequest{
		Model:   "models/" + p.cfg.Model,
		Content: newGeminiContent(text),
	}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrInvalidResponse)
	}
	return parsed.Embedding.Values, nil
}

// EmbedDocuments generates embeddings for multiple texts in one batch call.
func (p *GeminiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	key, err := p.resolveKey()
	if err != nil {
		return nil, err
	}
	if isTestKey(key) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = deterministicVector(p.Dimension())
		}
		return vectors, nil
	}

	requests := make([]geminiEmbedRequest, len(texts))
	for i, text := range texts {
		requests[i] = geminiEmbedRequest{
			Model:   "models/" + p.cfg.Model,
			Content: newGeminiContent(text),
		}
	}

	var parsed struct {
		Embeddings []geminiEmbedding `json:"embeddings"`
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents", p.cfg.BaseURL, p.cfg.Model)
	if err := p.post(ctx, key, url, map[string]any{"requests": requests}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrInvalidResponse, len(texts), len(parsed.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range parsed.Embeddings {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrInvalidResponse, i)
		}
		vectors[i] = e.Values
	}

	p.logger.Debug("generated gemini embeddings",
		zap.String("model", p.cfg.Model),
		zap.Int("count", len(texts)),
	)

	return vectors, nil
}

// post sends a JSON request to the Gemini API and decodes the response.
func (p *GeminiProvider) post(ctx context.Context, key, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// Close is a no-op; the provider holds no persistent connections.
func (p *GeminiProvider) Close() error {
	return nil
}

var _ Provider = (*GeminiProvider)(nil)
