// Package knowledge implements the project-scoped knowledge store: project
// lifecycle, entry CRUD, similarity search with threshold filtering, and
// partial-ID resolution.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/config"
	"github.com/fyrsmithlabs/knowd/internal/embeddings"
	"github.com/fyrsmithlabs/knowd/internal/vectorstore"
)

// Collection metadata keys.
const (
	collectionMetaName      = "project_name"
	collectionMetaCreatedAt = "created_at"
)

// collectionPrefix marks collections managed by this store. Foreign
// collections in the same database are ignored.
const collectionPrefix = "project_"

// Service orchestrates the embedding provider and the vector collection
// backend. It owns entry lifecycle exclusively; the backend is a pure
// persistence substrate addressed by ID.
//
// Every public operation performs its own fresh existence check against the
// backend. Nothing is cached across calls; another process may mutate the
// same on-disk store between operations.
type Service struct {
	cfg      *config.Config
	store    vectorstore.Store
	provider embeddings.Provider
	logger   *zap.Logger
}

// NewService creates a knowledge service.
func NewService(cfg *config.Config, store vectorstore.Store, provider embeddings.Provider, logger *zap.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		provider: provider,
		logger:   logger,
	}, nil
}

// CreateProject creates a project collection. It returns true if the
// project was newly created and false if it already existed; re-creating
// an existing project is never an error.
func (s *Service) CreateProject(ctx context.Context, project string) (bool, error) {
	metadata := map[string]string{
		collectionMetaName:      project,
		collectionMetaCreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	existed, err := s.store.EnsureCollection(ctx, CollectionKey(project), metadata)
	if err != nil {
		return false, fmt.Errorf("creating project %q: %w", project, err)
	}

	if !existed {
		s.logger.Info("project created", zap.String("project", project))
	}
	return !existed, nil
}

// ProjectExists reports whether a project exists. It never fails: any
// backend lookup failure is treated as "does not exist".
func (s *Service) ProjectExists(ctx context.Context, project string) bool {
	exists, err := s.store.HasCollection(ctx, CollectionKey(project))
	if err != nil {
		return false
	}
	return exists
}

// requireProject converts a missing project into ErrProjectNotFound.
func (s *Service) requireProject(ctx context.Context, project string) error {
	if !s.ProjectExists(ctx, project) {
		return fmt.Errorf("%w: %q (create it first with 'init')", ErrProjectNotFound, project)
	}
	return nil
}

// AddKnowledge embeds content and persists it as a new entry in the
// project, returning the generated entry ID. The project must already
// exist; the store never auto-creates on write.
func (s *Service) AddKnowledge(ctx context.Context, project, content string, tags []string) (string, error) {
	if err := ValidateContent(content); err != nil {
		return "", err
	}
	if err := ValidateTags(tags); err != nil {
		return "", err
	}
	if err := s.requireProject(ctx, project); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	entry := Entry{
		ID:        uuid.NewString(),
		Content:   content,
		Project:   project,
		Tags:      tags,
		Source:    SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]string{},
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	vector, err := s.provider.EmbedQuery(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embedding content: %w", err)
	}

	if err := s.store.Add(ctx, CollectionKey(project), entry.ID, vector, content, entry.ToStoreMetadata()); err != nil {
		return "", fmt.Errorf("adding knowledge to project %q: %w", project, err)
	}

	s.logger.Debug("knowledge added",
		zap.String("project", project),
		zap.String("id", entry.ID),
		zap.Int("tags", len(entry.Tags)),
	)

	return entry.ID, nil
}

// SearchKnowledge embeds the query, retrieves the maxResults nearest
// entries, and keeps those scoring at or above the configured similarity
// threshold. Scores are 1 - distance, unclamped. Ranks are assigned 1..N
// over the kept results in backend order.
//
// Filtering happens after retrieving only maxResults candidates, so a small
// limit can return fewer results than exist above the threshold.
func (s *Service) SearchKnowledge(ctx context.Context, project, query string, maxResults int) ([]SearchResult, error) {
	if err := s.requireProject(ctx, project); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}

	vector, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.store.Query(ctx, CollectionKey(project), vector, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching project %q: %w", project, err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		score := 1 - float64(m.Distance)
		if score < s.cfg.SimilarityThreshold {
			continue
		}
		entry := EntryFromStore(m.ID, m.Content, m.Metadata)
		if entry.Project == "" {
			entry.Project = project
		}
		results = append(results, SearchResult{
			Entry: entry,
			Score: score,
			Rank:  len(results) + 1,
		})
	}

	s.logger.Debug("search completed",
		zap.String("project", project),
		zap.Int("candidates", len(matches)),
		zap.Int("kept", len(results)),
	)

	return results, nil
}

// GetKnowledgeByID looks up an entry by its full ID or a unique prefix.
// It returns (nil, nil) when nothing matches. A prefix matching several
// entries yields an AmbiguousIDError; the store never guesses. A full-length
// ID that misses is definitive and triggers no prefix scan.
func (s *Service) GetKnowledgeByID(ctx context.Context, project, idOrPrefix string) (*Entry, error) {
	if err := s.requireProject(ctx, project); err != nil {
		return nil, err
	}

	key := CollectionKey(project)

	records, err := s.store.GetByIDs(ctx, key, []string{idOrPrefix})
	if err != nil {
		return nil, fmt.Errorf("looking up entry in project %q: %w", project, err)
	}
	if len(records) == 1 {
		entry := EntryFromStore(records[0].ID, records[0].Content, records[0].Metadata)
		return &entry, nil
	}

	if len(idOrPrefix) >= fullIDLength {
		return nil, nil
	}

	all, err := s.store.GetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("scanning project %q: %w", project, err)
	}

	var match *vectorstore.Record
	matches := 0
	for i := range all {
		if strings.HasPrefix(all[i].ID, idOrPrefix) {
			matches++
			match = &all[i]
		}
	}

	switch matches {
	case 0:
		return nil, nil
	case 1:
		entry := EntryFromStore(match.ID, match.Content, match.Metadata)
		return &entry, nil
	default:
		return nil, &AmbiguousIDError{Prefix: idOrPrefix, Matches: matches}
	}
}

// DeleteKnowledge deletes an entry by its exact ID. It returns false when
// the ID does not exist; prefix resolution for deletion is a caller-level
// convenience built on GetKnowledgeByID.
func (s *Service) DeleteKnowledge(ctx context.Context, project, id string) (bool, error) {
	if err := s.requireProject(ctx, project); err != nil {
		return false, err
	}

	key := CollectionKey(project)

	records, err := s.store.GetByIDs(ctx, key, []string{id})
	if err != nil {
		return false, fmt.Errorf("looking up entry in project %q: %w", project, err)
	}
	if len(records) == 0 {
		return false, nil
	}

	if err := s.store.Delete(ctx, key, id); err != nil {
		return false, fmt.Errorf("deleting entry from project %q: %w", project, err)
	}

	s.logger.Debug("knowledge deleted",
		zap.String("project", project),
		zap.String("id", id),
	)

	return true, nil
}

// ListKnowledge returns all entries of a project, newest first.
func (s *Service) ListKnowledge(ctx context.Context, project string) ([]Entry, error) {
	if err := s.requireProject(ctx, project); err != nil {
		return nil, err
	}

	records, err := s.store.GetAll(ctx, CollectionKey(project))
	if err != nil {
		return nil, fmt.Errorf("listing project %q: %w", project, err)
	}

	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = EntryFromStore(r.ID, r.Content, r.Metadata)
		if entries[i].Project == "" {
			entries[i].Project = project
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return entries, nil
}

// GetProjectInfo returns live statistics for a project. The creation time
// comes from the collection's own metadata, falling back to now when the
// backend did not preserve it.
func (s *Service) GetProjectInfo(ctx context.Context, project string) (*ProjectInfo, error) {
	if err := s.requireProject(ctx, project); err != nil {
		return nil, err
	}

	key := CollectionKey(project)

	var metadata map[string]string
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading project metadata for %q: %w", project, err)
	}
	for _, c := range collections {
		if c.Name == key {
			metadata = c.Metadata
			break
		}
	}

	return s.buildProjectInfo(ctx, key, project, metadata)
}

// buildProjectInfo assembles a ProjectInfo from collection metadata and a
// scan of the live entries.
func (s *Service) buildProjectInfo(ctx context.Context, key, displayName string, metadata map[string]string) (*ProjectInfo, error) {
	records, err := s.store.GetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}

	info := &ProjectInfo{
		Name:         displayName,
		TotalEntries: len(records),
		CreatedAt:    parseTimestamp(metadata[collectionMetaCreatedAt]),
	}
	if name := metadata[collectionMetaName]; name != "" {
		info.Name = name
	}

	for _, r := range records {
		entry := EntryFromStore(r.ID, r.Content, r.Metadata)
		if info.LastUpdated == nil || entry.UpdatedAt.After(*info.LastUpdated) {
			ts := entry.UpdatedAt
			info.LastUpdated = &ts
		}
	}

	return info, nil
}

// ListProjects returns info for every project, newest first. A collection
// that cannot be converted is skipped rather than aborting the listing.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	projects := make([]ProjectInfo, 0, len(collections))
	for _, c := range collections {
		if !strings.HasPrefix(c.Name, collectionPrefix) {
			continue
		}
		displayName := strings.TrimPrefix(c.Name, collectionPrefix)
		info, err := s.buildProjectInfo(ctx, c.Name, displayName, c.Metadata)
		if err != nil {
			s.logger.Warn("skipping unreadable project collection",
				zap.String("collection", c.Name),
				zap.Error(err),
			)
			continue
		}
		projects = append(projects, *info)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})

	return projects, nil
}
