// Package vectorstore defines the contract for durable per-project vector
// collections and provides an embedded implementation on chromem-go.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrBackendFailure wraps any storage engine failure.
	ErrBackendFailure = errors.New("vector store backend failure")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Record is one stored (id, document, metadata) tuple.
type Record struct {
	// ID is the unique identifier within the collection.
	ID string

	// Content is the raw document text.
	Content string

	// Metadata is flat string-keyed metadata, returned byte-identical
	// to what was stored.
	Metadata map[string]string
}

// QueryMatch is one nearest-neighbor result.
type QueryMatch struct {
	Record

	// Distance is the cosine distance to the query vector. Results are
	// ordered by ascending distance (nearest first).
	Distance float32
}

// CollectionInfo describes one collection and its creation metadata.
type CollectionInfo struct {
	Name     string
	Metadata map[string]string
}

// Store is the durable per-project collection contract.
//
// Uniqueness of record IDs within a collection is the caller's concern; the
// store does not enforce it. Implementations must not cache existence or
// counts across calls, since another process may mutate the same on-disk
// store between operations.
type Store interface {
	// EnsureCollection creates the collection if absent and reports whether
	// it already existed. Creation metadata is persisted only on first
	// creation.
	EnsureCollection(ctx context.Context, name string, metadata map[string]string) (existed bool, err error)

	// HasCollection reports whether a collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// Add inserts one record with a precomputed embedding. Behavior on a
	// duplicate ID is an overwrite.
	Add(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error

	// Query returns up to k records ordered by ascending cosine distance
	// to the query vector.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]QueryMatch, error)

	// GetByIDs returns the records with the given IDs. Missing IDs are
	// omitted from the result, not an error.
	GetByIDs(ctx context.Context, collection string, ids []string) ([]Record, error)

	// GetAll returns every record in the collection. Collections are
	// per-project and modest in size, so an unbounded scan is acceptable.
	GetAll(ctx context.Context, collection string) ([]Record, error)

	// Delete removes a record by ID. Deleting a non-existent ID is a no-op;
	// callers wanting "not found" semantics must check existence first.
	Delete(ctx context.Context, collection, id string) error

	// ListCollections returns all collections with their creation metadata.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// Close releases resources held by the store.
	Close() error
}
