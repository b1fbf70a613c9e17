package mcp

import (
	"context"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/config"
	"github.com/fyrsmithlabs/knowd/internal/embeddings"
	"github.com/fyrsmithlabs/knowd/internal/knowledge"
	"github.com/fyrsmithlabs/knowd/internal/vectorstore"
)

func testService(t *testing.T) *knowledge.Service {
	t.Helper()
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

	cfg := &config.Config{MaxResults: 10, SimilarityThreshold: 0.7}
	svc, err := knowledge.NewService(cfg, store, provider, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(DefaultConfig(), nil)
	require.Error(t, err)
}

func TestNewServerDefaults(t *testing.T) {
	s, err := NewServer(nil, testService(t))
	require.NoError(t, err)
	assert.NotNil(t, s.mcp)
	assert.Empty(t, s.project)
}

// vanishingStore returns its record on the first lookup only, modeling
// another process deleting the entry between the resolving lookup and the
// delete's own existence check.
type vanishingStore struct {
	record  vectorstore.Record
	lookups int
}

func (f *vanishingStore) EnsureCollection(ctx context.Context, name string, metadata map[string]string) (bool, error) {
	return true, nil
}

func (f *vanishingStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func (f *vanishingStore) Add(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	return nil
}

func (f *vanishingStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]vectorstore.QueryMatch, error) {
	return nil, nil
}

func (f *vanishingStore) GetByIDs(ctx context.Context, collection string, ids []string) ([]vectorstore.Record, error) {
	f.lookups++
	if f.lookups == 1 {
		return []vectorstore.Record{f.record}, nil
	}
	return nil, nil
}

func (f *vanishingStore) GetAll(ctx context.Context, collection string) ([]vectorstore.Record, error) {
	return nil, nil
}

func (f *vanishingStore) Delete(ctx context.Context, collection, id string) error { return nil }

func (f *vanishingStore) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	return nil, nil
}

func (f *vanishingStore) Close() error { return nil }

var _ vectorstore.Store = (*vanishingStore)(nil)

func TestMemoDeleteEntryGoneBetweenLookupAndDelete(t *testing.T) {
	t.Setenv("KNOWD_TEST_API_KEY", "test-offline")

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  config.ProviderOpenAI,
		Model:     "text-embedding-3-small",
		APIKeyEnv: "KNOWD_TEST_API_KEY",
	}, zap.NewNop())
	require.NoError(t, err)

	id := "0f8fad5b-d9cb-469f-a165-70867728950e"
	store := &vanishingStore{record: vectorstore.Record{ID: id, Content: "gone soon"}}

	cfg := &config.Config{MaxResults: 10, SimilarityThreshold: 0.7}
	svc, err := knowledge.NewService(cfg, store, provider, zap.NewNop())
	require.NoError(t, err)

	s, err := NewServer(DefaultConfig(), svc)
	require.NoError(t, err)

	res, out, err := s.handleMemoDelete(context.Background(), nil, memoDeleteInput{Project: "myapp", ID: id})
	require.NoError(t, err)

	assert.False(t, out.Deleted)
	assert.Equal(t, id, out.ID)

	require.Len(t, res.Content, 1)
	text := res.Content[0].(*sdk.TextContent).Text
	assert.NotContains(t, text, "Deleted", "text must not claim deletion when nothing was deleted")
	assert.Contains(t, text, "already gone")
}

func TestResolveProject(t *testing.T) {
	svc := testService(t)

	t.Run("explicit argument wins", func(t *testing.T) {
		s, err := NewServer(&Config{Project: "bound"}, svc)
		require.NoError(t, err)

		project, err := s.resolveProject("explicit")
		require.NoError(t, err)
		assert.Equal(t, "explicit", project)
	})

	t.Run("bound project as fallback", func(t *testing.T) {
		s, err := NewServer(&Config{Project: "bound"}, svc)
		require.NoError(t, err)

		project, err := s.resolveProject("")
		require.NoError(t, err)
		assert.Equal(t, "bound", project)
	})

	t.Run("no project anywhere fails", func(t *testing.T) {
		s, err := NewServer(DefaultConfig(), svc)
		require.NoError(t, err)

		_, err = s.resolveProject("")
		require.Error(t, err)
	})
}
