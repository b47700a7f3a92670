package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

func docWithRepo(id, repo, path string) vectorstore.Document {
	return vectorstore.Document{
		ID:      id,
		Content: "content " + id,
		Vector:  embedding.Vector{0.1, 0.2, 0.3},
		Metadata: map[string]interface{}{
			"repository": repo,
			"file_path":  path,
		},
	}
}

func TestStore_SearchByMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, docWithRepo("a1", "demo", "docs/guide/install.md")))
	require.NoError(t, store.Upsert(ctx, docWithRepo("a2", "demo", "src/main.go")))
	require.NoError(t, store.Upsert(ctx, docWithRepo("b1", "other", "docs/readme.md")))

	t.Run("equality filter", func(t *testing.T) {
		results, err := store.SearchByMetadata(ctx, map[string]interface{}{"repository": "other"}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b1", results[0].ID)
	})

	t.Run("glob filter", func(t *testing.T) {
		results, err := store.SearchByMetadata(ctx, map[string]interface{}{"file_path": "docs/**/*.md"}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a1", results[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := store.SearchByMetadata(ctx, map[string]interface{}{"repository": "demo"}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
	})
}

func TestStore_DeleteByRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, docWithRepo("a1", "demo", "docs/a.md")))
	require.NoError(t, store.Upsert(ctx, docWithRepo("a2", "demo", "docs/b.md")))
	require.NoError(t, store.Upsert(ctx, docWithRepo("b1", "other", "docs/c.md")))

	require.NoError(t, store.DeleteByRepository(ctx, "demo"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	remaining, err := store.SearchByMetadata(ctx, map[string]interface{}{"repository": "other"}, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b1", remaining[0].ID)
}

func TestStore_DeleteByDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := docWithRepo("c1", "demo", "docs/a.md")
	doc.Metadata["document_id"] = "doc-1"
	require.NoError(t, store.Upsert(ctx, doc))

	require.NoError(t, store.DeleteByDocument(ctx, "doc-1"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestBuildMetadataWhere(t *testing.T) {
	t.Run("empty filter", func(t *testing.T) {
		where, args := buildMetadataWhere(nil)
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("equality and glob mixed", func(t *testing.T) {
		where, args := buildMetadataWhere(map[string]interface{}{
			"repository": "demo",
			"file_path":  "docs/**/*.md",
		})
		assert.Contains(t, where, "json_extract(metadata, '$.repository') = ?")
		assert.Contains(t, where, "json_extract(metadata, '$.file_path') GLOB ?")
		assert.Len(t, args, 2)
	})
}

func TestIsGlobLike(t *testing.T) {
	assert.True(t, isGlobLike("docs/**/*.md"))
	assert.True(t, isGlobLike("file?.go"))
	assert.True(t, isGlobLike("[abc].go"))
	assert.False(t, isGlobLike("docs/readme.md"))
}
