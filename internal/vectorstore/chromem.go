package vectorstore

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/config"
)

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// VectorSize is the expected embedding dimension. Must match the
	// embedding provider's output dimension.
	VectorSize int
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements the Store interface using chromem-go.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies: pure Go, no external service, automatic persistence to gob
// files under the configured path. Search is always exact (no ANN index),
// which suits the modest per-project collection sizes here.
//
// All embeddings are computed upstream by the embedding provider, so the
// chromem embedding function is wired to fail loudly if it is ever invoked.
type ChromemStore struct {
	db       *chromem.DB
	config   ChromemConfig
	registry *registry
	logger   *zap.Logger
}

// NewChromemStore opens (or creates) a persistent store at the configured
// path.
func NewChromemStore(cfg ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	path, err := config.ExpandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	cfg.Path = path

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: opening chromem DB: %v", ErrBackendFailure, err)
	}

	store := &ChromemStore{
		db:       db,
		config:   cfg,
		registry: newRegistry(path),
		logger:   logger,
	}

	logger.Debug("chromem store opened",
		zap.String("path", path),
		zap.Bool("compress", cfg.Compress),
		zap.Int("vector_size", cfg.VectorSize),
	)

	return store, nil
}

// embeddingFunc returns a chromem.EmbeddingFunc that must never run.
// Passing nil would make chromem fall back to its default OpenAI embedder
// for persisted collections.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embeddings are precomputed upstream")
	}
}

// getCollection resolves a collection handle or reports ErrCollectionNotFound.
func (s *ChromemStore) getCollection(name string) (*chromem.Collection, error) {
	collection := s.db.GetCollection(name, s.embeddingFunc())
	if collection == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return collection, nil
}

// EnsureCollection creates the collection if absent and reports whether it
// already existed.
func (s *ChromemStore) EnsureCollection(ctx context.Context, name string, metadata map[string]string) (bool, error) {
	existed := s.db.GetCollection(name, s.embeddingFunc()) != nil

	if _, err := s.db.GetOrCreateCollection(name, metadata, s.embeddingFunc()); err != nil {
		return false, fmt.Errorf("%w: creating collection %s: %v", ErrBackendFailure, name, err)
	}

	if !existed {
		if err := s.registry.set(name, metadata); err != nil {
			return false, fmt.Errorf("%w: %v", ErrBackendFailure, err)
		}
		s.logger.Info("created collection", zap.String("collection", name))
	}

	return existed, nil
}

// HasCollection reports whether a collection exists.
func (s *ChromemStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.db.GetCollection(name, s.embeddingFunc()) != nil, nil
}

// Add inserts one record with its precomputed embedding. An existing record
// with the same ID is overwritten.
func (s *ChromemStore) Add(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	if len(vector) != s.config.VectorSize {
		return fmt.Errorf("%w: vector size %d does not match configured size %d", ErrInvalidConfig, len(vector), s.config.VectorSize)
	}

	c, err := s.getCollection(collection)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        id,
		Content:   content,
		Metadata:  metadata,
		Embedding: vector,
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: adding document %s: %v", ErrBackendFailure, id, err)
	}

	s.logger.Debug("added document",
		zap.String("collection", collection),
		zap.String("id", id),
	)

	return nil
}

// Query returns up to k records ordered by ascending cosine distance.
func (s *ChromemStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]QueryMatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	c, err := s.getCollection(collection)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= document count.
	count := c.Count()
	if count == 0 {
		return []QueryMatch{}, nil
	}
	if k > count {
		k = count
	}

	results, err := c.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection %s: %v", ErrBackendFailure, collection, err)
	}

	// chromem reports cosine similarity descending; convert to the
	// ascending-distance contract.
	matches := make([]QueryMatch, len(results))
	for i, r := range results {
		matches[i] = QueryMatch{
			Record: Record{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Distance: 1 - r.Similarity,
		}
	}

	return matches, nil
}

// GetByIDs returns the records with the given IDs, omitting missing ones.
func (s *ChromemStore) GetByIDs(ctx context.Context, collection string, ids []string) ([]Record, error) {
	c, err := s.getCollection(collection)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		doc, err := c.GetByID(ctx, id)
		if err != nil {
			// chromem only errors here when the ID is absent.
			continue
		}
		records = append(records, Record{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}
	return records, nil
}

// GetAll returns every record in the collection via an exact full scan.
func (s *ChromemStore) GetAll(ctx context.Context, collection string) ([]Record, error) {
	c, err := s.getCollection(collection)
	if err != nil {
		return nil, err
	}

	count := c.Count()
	if count == 0 {
		return []Record{}, nil
	}

	// chromem has no enumeration API; a query with k = count visits every
	// document. The probe vector only influences ordering, which callers
	// of GetAll do not rely on.
	probe := make([]float32, s.config.VectorSize)
	probe[0] = 1

	results, err := c.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning collection %s: %v", ErrBackendFailure, collection, err)
	}

	records := make([]Record, len(results))
	for i, r := range results {
		records[i] = Record{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
		}
	}
	return records, nil
}

// Delete removes a record by ID. Missing IDs are a no-op.
func (s *ChromemStore) Delete(ctx context.Context, collection, id string) error {
	c, err := s.getCollection(collection)
	if err != nil {
		return err
	}

	if err := c.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("%w: deleting document %s: %v", ErrBackendFailure, id, err)
	}

	s.logger.Debug("deleted document",
		zap.String("collection", collection),
		zap.String("id", id),
	)

	return nil
}

// ListCollections returns all collections with their creation metadata from
// the sidecar registry. Collections missing from the registry are returned
// with nil metadata.
func (s *ChromemStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	collections := s.db.ListCollections()

	infos := make([]CollectionInfo, 0, len(collections))
	for name := range collections {
		infos = append(infos, CollectionInfo{
			Name:     name,
			Metadata: s.registry.get(name),
		})
	}
	return infos, nil
}

// Close closes the store. chromem persists on every write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}

var _ Store = (*ChromemStore)(nil)
