package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferg-cod3s/docsyncer/internal/app"
	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/gitsync"
	"github.com/ferg-cod3s/docsyncer/internal/indexer"
	"github.com/ferg-cod3s/docsyncer/internal/plugin"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// docSyncFakeGitSync is an in-memory gitsync.GitSync double local to this
// package's tests (internal/app's own fakeGitSync is unexported there).
type docSyncFakeGitSync struct {
	repos   map[string]gitsync.Repository
	files   map[string]map[string][]byte
	changes map[string]gitsync.ChangeSet
}

func newDocSyncFakeGitSync() *docSyncFakeGitSync {
	return &docSyncFakeGitSync{
		repos:   map[string]gitsync.Repository{},
		files:   map[string]map[string][]byte{},
		changes: map[string]gitsync.ChangeSet{},
	}
}

func (f *docSyncFakeGitSync) AddRepository(repo gitsync.Repository) error {
	f.repos[repo.Name] = repo
	if f.files[repo.Name] == nil {
		f.files[repo.Name] = map[string][]byte{}
	}
	return nil
}
func (f *docSyncFakeGitSync) SyncRepository(ctx context.Context, name string) (gitsync.ChangeSet, error) {
	return f.changes[name], nil
}
func (f *docSyncFakeGitSync) SyncAll(ctx context.Context) (map[string]gitsync.ChangeSet, error) {
	return f.changes, nil
}
func (f *docSyncFakeGitSync) StartScheduledSync(name string) error { return nil }
func (f *docSyncFakeGitSync) StopScheduledSync(name string) error  { return nil }
func (f *docSyncFakeGitSync) DeleteRepository(name string) error {
	delete(f.repos, name)
	delete(f.files, name)
	return nil
}
func (f *docSyncFakeGitSync) Repository(name string) (gitsync.Repository, error) {
	r, ok := f.repos[name]
	if !ok {
		return gitsync.Repository{}, gitsync.ErrRepositoryNotFound
	}
	return r, nil
}
func (f *docSyncFakeGitSync) Repositories() []gitsync.Repository {
	out := make([]gitsync.Repository, 0, len(f.repos))
	for _, r := range f.repos {
		out = append(out, r)
	}
	return out
}
func (f *docSyncFakeGitSync) ReadFile(name, path string) ([]byte, error) {
	return f.files[name][path], nil
}
func (f *docSyncFakeGitSync) Close() error { return nil }

// newDocSyncTestServer builds a Server with a real Pipeline over an
// in-memory vector store, so the documentation tool handlers exercise the
// actual GitSync/ContextGenerator wiring rather than mocks.
func newDocSyncTestServer(t *testing.T) (*Server, *docSyncFakeGitSync) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	embedder := embedding.NewMock(8)
	fake := newDocSyncFakeGitSync()
	plugins := plugin.NewRegistries()
	gen := contextgen.NewGenerator(embedder, store, storeCatalogForTest{store: store}, repoPrioritiesForTest{fake: fake})

	pipeline := &app.Pipeline{
		GitSync:    fake,
		Store:      store,
		Embedder:   embedder,
		Processor:  indexer.NewDefaultDocumentProcessor(1200, 200),
		Plugins:    plugins,
		ContextGen: gen,
	}

	server := NewServer(nil, nil, store, nil, embedder, nil, nil, nil)
	server.WithPipeline(pipeline)
	return server, fake
}

// repoPrioritiesForTest and storeCatalogForTest mirror internal/app's
// unexported adapters so this test can build a Generator without reaching
// into that package's internals.
type repoPrioritiesForTest struct{ fake *docSyncFakeGitSync }

func (r repoPrioritiesForTest) Priority(repository string) string {
	repo, err := r.fake.Repository(repository)
	if err != nil || repo.Priority == "" {
		return "medium"
	}
	return string(repo.Priority)
}

type storeCatalogForTest struct{ store vectorstore.VectorStore }

func (c storeCatalogForTest) AllDocuments(ctx context.Context) []vectorstore.Document {
	docs, err := c.store.SearchByMetadata(ctx, nil, 0)
	if err != nil {
		return nil
	}
	return docs
}

func TestHandleSearchDocumentation_RequiresQuery(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	_, err := server.handleSearchDocumentation(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestHandleSearchDocumentation_WithoutPipelineReturnsConfigError(t *testing.T) {
	server := NewServer(nil, nil, vectorstore.NewMemoryStore(), nil, embedding.NewMock(8), nil, nil, nil)
	_, err := server.handleSearchDocumentation(context.Background(), json.RawMessage(`{"query":"hi"}`))
	assert.Error(t, err)
}

func TestHandleGetRepositoryStatus_SingleAndAll(t *testing.T) {
	server, fake := newDocSyncTestServer(t)
	require.NoError(t, fake.AddRepository(gitsync.Repository{Name: "docs", Priority: gitsync.PriorityHigh, Status: gitsync.StatusReady}))

	resp, err := server.handleGetRepositoryStatus(context.Background(), json.RawMessage(`{"repository":"docs"}`))
	require.NoError(t, err)
	out := resp.(GetRepositoryStatusResponse)
	require.Len(t, out.Repositories, 1)
	assert.Equal(t, "docs", out.Repositories[0].Name)
	assert.Equal(t, "high", out.Repositories[0].Priority)

	resp, err = server.handleGetRepositoryStatus(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	out = resp.(GetRepositoryStatusResponse)
	assert.Len(t, out.Repositories, 1)
}

func TestHandleGetRepositoryStatus_UnknownRepository(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	_, err := server.handleGetRepositoryStatus(context.Background(), json.RawMessage(`{"repository":"missing"}`))
	assert.Error(t, err)
}

func TestHandleSyncRepository_IndexesAddedFiles(t *testing.T) {
	server, fake := newDocSyncTestServer(t)
	require.NoError(t, fake.AddRepository(gitsync.Repository{Name: "docs"}))
	fake.files["docs"] = map[string][]byte{"readme.md": []byte("# Title\n\nSome documentation content here.")}
	fake.changes["docs"] = gitsync.ChangeSet{Repository: "docs", Added: []string{"readme.md"}}

	resp, err := server.handleSyncRepository(context.Background(), json.RawMessage(`{"repository":"docs"}`))
	require.NoError(t, err)
	out := resp.(SyncRepositoryResponse)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "docs", out.Results[0].Repository)
	assert.Equal(t, 1, out.Results[0].Added)
	assert.Empty(t, out.Results[0].Error)
}

func TestHandleSyncRepository_RequiresRepositoryOrAll(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	_, err := server.handleSyncRepository(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestReadDocSyncResource_StatsUsesVectorStoreStatsProvider(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	content, ok, err := server.readDocSyncResource(context.Background(), ResourceDocsStats)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, content)
}

func TestReadDocSyncResource_UnknownURIIsNotRecognized(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	_, ok, err := server.readDocSyncResource(context.Background(), "engine://files/x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandlePromptsList_ReturnsAllPrompts(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	resp, err := server.handlePromptsList(context.Background())
	require.NoError(t, err)
	prompts := resp.(map[string]interface{})["prompts"].([]PromptDefinition)
	assert.Len(t, prompts, 3)
}

func TestHandlePromptsGet_UnknownPromptErrors(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	_, err := server.handlePromptsGet(context.Background(), json.RawMessage(`{"name":"nope"}`))
	assert.Error(t, err)
}

func TestHandlePromptsGet_ExplainCode(t *testing.T) {
	server, _ := newDocSyncTestServer(t)
	resp, err := server.handlePromptsGet(context.Background(), json.RawMessage(`{"name":"explain_code","arguments":{"file_path":"main.go"}}`))
	require.NoError(t, err)
	messages := resp.(map[string]interface{})["messages"].([]PromptMessage)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "main.go")
}
