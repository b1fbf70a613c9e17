package knowledge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/config"
	"github.com/fyrsmithlabs/knowd/internal/embeddings"
	"github.com/fyrsmithlabs/knowd/internal/knowledge"
	"github.com/fyrsmithlabs/knowd/internal/vectorstore"
)

// fakeStore is an in-memory Store with scriptable query results, used to
// exercise service semantics without a database on disk.
type fakeStore struct {
	collections map[string]map[string]string
	records     map[string][]vectorstore.Record
	queryResult []vectorstore.QueryMatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: map[string]map[string]string{},
		records:     map[string][]vectorstore.Record{},
	}
}

func (f *fakeStore) EnsureCollection(ctx context.Context, name string, metadata map[string]string) (bool, error) {
	if _, ok := f.collections[name]; ok {
		return true, nil
	}
	f.collections[name] = metadata
	return false, nil
}

func (f *fakeStore) HasCollection(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeStore) Add(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	f.records[collection] = append(f.records[collection], vectorstore.Record{
		ID:       id,
		Content:  content,
		Metadata: metadata,
	})
	return nil
}

func (f *fakeStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]vectorstore.QueryMatch, error) {
	if k > len(f.queryResult) {
		k = len(f.queryResult)
	}
	return f.queryResult[:k], nil
}

func (f *fakeStore) GetByIDs(ctx context.Context, collection string, ids []string) ([]vectorstore.Record, error) {
	var out []vectorstore.Record
	for _, id := range ids {
		for _, r := range f.records[collection] {
			if r.ID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetAll(ctx context.Context, collection string) ([]vectorstore.Record, error) {
	return f.records[collection], nil
}

func (f *fakeStore) Delete(ctx context.Context, collection, id string) error {
	kept := f.records[collection][:0]
	for _, r := range f.records[collection] {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.records[collection] = kept
	return nil
}

func (f *fakeStore) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	infos := make([]vectorstore.CollectionInfo, 0, len(f.collections))
	for name, metadata := range f.collections {
		infos = append(infos, vectorstore.CollectionInfo{Name: name, Metadata: metadata})
	}
	return infos, nil
}

func (f *fakeStore) Close() error { return nil }

var _ vectorstore.Store = (*fakeStore)(nil)

func testConfig() *config.Config {
	return &config.Config{
		MaxResults:          10,
		SimilarityThreshold: 0.7,
	}
}

func testProvider(t *testing.T) embeddings.Provider {
	t.Helper()
	t.Setenv("KNOWD_TEST_API_KEY", "test-offline")
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  config.ProviderOpenAI,
		Model:     "text-embedding-3-small",
		APIKeyEnv: "KNOWD_TEST_API_KEY",
	}, zap.NewNop())
	require.NoError(t, err)
	return provider
}

func newTestService(t *testing.T, store vectorstore.Store) *knowledge.Service {
	t.Helper()
	svc, err := knowledge.NewService(testConfig(), store, testProvider(t), zap.NewNop())
	require.NoError(t, err)
	return svc
}

func storedMetadata(project string, created time.Time) map[string]string {
	e := knowledge.Entry{
		Project:   project,
		Tags:      []string{},
		Source:    knowledge.SourceManual,
		CreatedAt: created,
		UpdatedAt: created,
		Metadata:  map[string]string{},
	}
	return e.ToStoreMetadata()
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	store := newFakeStore()
	provider := testProvider(t)

	_, err := knowledge.NewService(nil, store, provider, nil)
	require.Error(t, err)

	_, err = knowledge.NewService(testConfig(), nil, provider, nil)
	require.Error(t, err)

	_, err = knowledge.NewService(testConfig(), store, nil, nil)
	require.Error(t, err)

	_, err = knowledge.NewService(testConfig(), store, provider, nil)
	require.NoError(t, err)
}

func TestCreateProjectIdempotent(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	created, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestProjectExists(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	assert.False(t, svc.ProjectExists(ctx, "myapp"))

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	assert.True(t, svc.ProjectExists(ctx, "myapp"))
	// Existence follows the canonical key, not the literal spelling.
	assert.True(t, svc.ProjectExists(ctx, "MyApp"))
}

func TestAddKnowledgeRequiresProject(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	_, err := svc.AddKnowledge(context.Background(), "ghost", "content", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, knowledge.ErrProjectNotFound)
}

func TestAddKnowledgeValidation(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	_, err = svc.AddKnowledge(ctx, "myapp", "", nil)
	assert.ErrorIs(t, err, knowledge.ErrValidation)

	_, err = svc.AddKnowledge(ctx, "myapp", "ok", []string{"a,b"})
	assert.ErrorIs(t, err, knowledge.ErrValidation)
}

func TestAddKnowledgeStoresEntry(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	id, err := svc.AddKnowledge(ctx, "myapp", "tokens expire after 5 minutes", []string{"auth"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	records := store.records["project_myapp"]
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "tokens expire after 5 minutes", records[0].Content)
	assert.Equal(t, "myapp", records[0].Metadata["project"])
	assert.Equal(t, "auth", records[0].Metadata["tags"])
	assert.Equal(t, "manual", records[0].Metadata["source"])
}

func TestSearchThresholdAndRanks(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	now := time.Now().UTC()
	store.queryResult = []vectorstore.QueryMatch{
		{Record: vectorstore.Record{ID: "id-1", Content: "best", Metadata: storedMetadata("myapp", now)}, Distance: 0.05},
		{Record: vectorstore.Record{ID: "id-2", Content: "good", Metadata: storedMetadata("myapp", now)}, Distance: 0.18},
		{Record: vectorstore.Record{ID: "id-3", Content: "weak", Metadata: storedMetadata("myapp", now)}, Distance: 0.39},
	}

	results, err := svc.SearchKnowledge(ctx, "myapp", "query", 10)
	require.NoError(t, err)

	// Threshold 0.7 keeps scores 0.95 and 0.82, drops 0.61. Ranks stay
	// dense over the kept results.
	require.Len(t, results, 2)
	assert.Equal(t, "id-1", results[0].Entry.ID)
	assert.InDelta(t, 0.95, results[0].Score, 1e-6)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "id-2", results[1].Entry.ID)
	assert.InDelta(t, 0.82, results[1].Score, 1e-6)
	assert.Equal(t, 2, results[1].Rank)
}

func TestSearchDefaultsMaxResults(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 15; i++ {
		store.queryResult = append(store.queryResult, vectorstore.QueryMatch{
			Record:   vectorstore.Record{ID: "id", Content: "x", Metadata: storedMetadata("myapp", now)},
			Distance: 0,
		})
	}

	// maxResults <= 0 falls back to the configured limit of 10.
	results, err := svc.SearchKnowledge(ctx, "myapp", "query", 0)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestSearchEmptyProject(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	results, err := svc.SearchKnowledge(ctx, "myapp", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func seedRecords(store *fakeStore, collection string, ids ...string) {
	now := time.Now().UTC()
	for _, id := range ids {
		store.records[collection] = append(store.records[collection], vectorstore.Record{
			ID:       id,
			Content:  "content-" + id,
			Metadata: storedMetadata("myapp", now),
		})
	}
}

func TestGetKnowledgeByIDPrefix(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	seedRecords(store, "project_myapp",
		"abc11111-0000-0000-0000-000000000000",
		"abc22222-0000-0000-0000-000000000000",
		"xyz33333-0000-0000-0000-000000000000",
	)

	t.Run("unique prefix resolves", func(t *testing.T) {
		entry, err := svc.GetKnowledgeByID(ctx, "myapp", "xyz")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "xyz33333-0000-0000-0000-000000000000", entry.ID)
	})

	t.Run("ambiguous prefix rejected", func(t *testing.T) {
		entry, err := svc.GetKnowledgeByID(ctx, "myapp", "abc")
		require.Error(t, err)
		assert.Nil(t, entry)

		var ambiguous *knowledge.AmbiguousIDError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, "abc", ambiguous.Prefix)
		assert.Equal(t, 2, ambiguous.Matches)
	})

	t.Run("no match yields nil without error", func(t *testing.T) {
		entry, err := svc.GetKnowledgeByID(ctx, "myapp", "qqq")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("exact full ID resolves", func(t *testing.T) {
		entry, err := svc.GetKnowledgeByID(ctx, "myapp", "abc11111-0000-0000-0000-000000000000")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "abc11111-0000-0000-0000-000000000000", entry.ID)
	})

	t.Run("full-length miss skips prefix scan", func(t *testing.T) {
		entry, err := svc.GetKnowledgeByID(ctx, "myapp", "abc00000-9999-9999-9999-999999999999")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}

func TestDeleteKnowledgeExactOnly(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	seedRecords(store, "project_myapp", "abc11111-0000-0000-0000-000000000000")

	// Delete takes exact IDs; a prefix is reported as not found.
	deleted, err := svc.DeleteKnowledge(ctx, "myapp", "abc")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = svc.DeleteKnowledge(ctx, "myapp", "abc11111-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteKnowledge(ctx, "myapp", "abc11111-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListKnowledgeNewestFirst(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"id-old", "id-mid", "id-new"} {
		store.records["project_myapp"] = append(store.records["project_myapp"], vectorstore.Record{
			ID:       id,
			Content:  id,
			Metadata: storedMetadata("myapp", base.Add(time.Duration(i)*time.Hour)),
		})
	}

	entries, err := svc.ListKnowledge(ctx, "myapp")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "id-new", entries[0].ID)
	assert.Equal(t, "id-mid", entries[1].ID)
	assert.Equal(t, "id-old", entries[2].ID)
}

func TestGetProjectInfo(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "My-App")
	require.NoError(t, err)

	info, err := svc.GetProjectInfo(ctx, "My-App")
	require.NoError(t, err)
	assert.Equal(t, "My-App", info.Name)
	assert.Equal(t, 0, info.TotalEntries)
	assert.Nil(t, info.LastUpdated)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.records["project_my_app"] = append(store.records["project_my_app"],
		vectorstore.Record{ID: "a", Content: "a", Metadata: storedMetadata("My-App", base)},
		vectorstore.Record{ID: "b", Content: "b", Metadata: storedMetadata("My-App", base.Add(time.Hour))},
	)

	info, err = svc.GetProjectInfo(ctx, "My-App")
	require.NoError(t, err)
	assert.Equal(t, 2, info.TotalEntries)
	require.NotNil(t, info.LastUpdated)
	assert.Equal(t, base.Add(time.Hour), *info.LastUpdated)
}

func TestListProjects(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "alpha")
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, "beta")
	require.NoError(t, err)

	// Foreign collections in the same database are not projects.
	store.collections["scratch"] = nil

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	names := []string{projects[0].Name, projects[1].Name}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestOperationsRequireProject(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	_, err := svc.SearchKnowledge(ctx, "ghost", "q", 5)
	assert.ErrorIs(t, err, knowledge.ErrProjectNotFound)

	_, err = svc.GetKnowledgeByID(ctx, "ghost", "abc")
	assert.ErrorIs(t, err, knowledge.ErrProjectNotFound)

	_, err = svc.DeleteKnowledge(ctx, "ghost", "abc")
	assert.ErrorIs(t, err, knowledge.ErrProjectNotFound)

	_, err = svc.ListKnowledge(ctx, "ghost")
	assert.ErrorIs(t, err, knowledge.ErrProjectNotFound)

	_, err = svc.GetProjectInfo(ctx, "ghost")
	assert.ErrorIs(t, err, knowledge.ErrProjectNotFound)
}

// TestEndToEndChromem runs the full pipeline against the embedded store
// with the offline test-mode provider.
func TestEndToEndChromem(t *testing.T) {
	t.Setenv("KNOWD_TEST_API_KEY", "test-offline")

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  config.ProviderOpenAI,
		Model:     "text-embedding-3-small",
		APIKeyEnv: "KNOWD_TEST_API_KEY",
	}, zap.NewNop())
	require.NoError(t, err)

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       t.TempDir(),
		VectorSize: provider.Dimension(),
	}, zap.NewNop())
	require.NoError(t, err)

	svc, err := knowledge.NewService(testConfig(), store, provider, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	created, err := svc.CreateProject(ctx, "myapp")
	require.NoError(t, err)
	require.True(t, created)

	id, err := svc.AddKnowledge(ctx, "myapp", "deploys run from the release branch", []string{"ops"})
	require.NoError(t, err)
	require.Len(t, id, 36)

	// Test-mode embeddings are identical for every text, so any query
	// matches with similarity 1.0.
	results, err := svc.SearchKnowledge(ctx, "myapp", "how do deploys work", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Entry.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, []string{"ops"}, results[0].Entry.Tags)

	entry, err := svc.GetKnowledgeByID(ctx, "myapp", id[:8])
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "deploys run from the release branch", entry.Content)

	info, err := svc.GetProjectInfo(ctx, "myapp")
	require.NoError(t, err)
	assert.Equal(t, "myapp", info.Name)
	assert.Equal(t, 1, info.TotalEntries)
	require.NotNil(t, info.LastUpdated)

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "myapp", projects[0].Name)

	deleted, err := svc.DeleteKnowledge(ctx, "myapp", id)
	require.NoError(t, err)
	assert.True(t, deleted)

	entries, err := svc.ListKnowledge(ctx, "myapp")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
