// Package app wires GitSync, the DocumentProcessor, an EmbeddingProvider,
// the VectorIndex, ContextGenerator, and PluginRegistry into the single
// ingestion/retrieval pipeline the MCP and REST surfaces sit on top of.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ferg-cod3s/docsyncer/internal/config"
	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/gitsync"
	"github.com/ferg-cod3s/docsyncer/internal/indexer"
	"github.com/ferg-cod3s/docsyncer/internal/plugin"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// Pipeline is the assembled GitSync -> DocumentProcessor -> EmbeddingProvider
// -> VectorIndex -> ContextGenerator chain, plus the PluginRegistry extension
// points that can intercept the processor and reranker stages.
type Pipeline struct {
	GitSync    gitsync.GitSync
	Store      vectorstore.VectorStore
	Embedder   embedding.Embedder
	Processor  indexer.DocumentProcessor
	Plugins    *plugin.Registries
	ContextGen *contextgen.Generator
}

// NewPipeline constructs a Pipeline from configuration, registering every
// repository from cfg.Repositories with GitSync but performing no sync yet.
func NewPipeline(cfg *config.Config, store vectorstore.VectorStore, embedder embedding.Embedder) (*Pipeline, error) {
	sync := gitsync.New(gitsync.Config{
		BaseDir: "data/repos",
	})

	for _, rc := range cfg.Repositories {
		repo, err := repositoryFromConfig(rc)
		if err != nil {
			return nil, fmt.Errorf("app: repository %q: %w", rc.Name, err)
		}
		if err := sync.AddRepository(repo); err != nil {
			return nil, fmt.Errorf("app: registering repository %q: %w", rc.Name, err)
		}
	}

	processor := indexer.NewDefaultDocumentProcessor(1200, 200)
	plugins := plugin.NewRegistries()

	catalog := storeCatalog{store: store}
	priorities := repoPriorities{sync: sync}
	gen := contextgen.NewGenerator(embedder, store, catalog, priorities)
	gen.Weights = contextgen.PriorityWeights{
		High:   orFloat(cfg.ContextGeneration.PriorityWeightHigh, gen.Weights.High),
		Medium: orFloat(cfg.ContextGeneration.PriorityWeightMedium, gen.Weights.Medium),
		Low:    orFloat(cfg.ContextGeneration.PriorityWeightLow, gen.Weights.Low),
	}
	if cfg.ContextGeneration.ScoreThreshold > 0 {
		gen.ScoreThreshold = cfg.ContextGeneration.ScoreThreshold
	}

	return &Pipeline{
		GitSync:    sync,
		Store:      store,
		Embedder:   embedder,
		Processor:  processor,
		Plugins:    plugins,
		ContextGen: gen,
	}, nil
}

func orFloat(v, fallback float32) float32 {
	if v > 0 {
		return v
	}
	return fallback
}

func repositoryFromConfig(rc config.RepositoryConfig) (gitsync.Repository, error) {
	var interval time.Duration
	if rc.SyncInterval != "" && rc.SyncInterval != "0" {
		d, err := time.ParseDuration(rc.SyncInterval)
		if err != nil {
			return gitsync.Repository{}, fmt.Errorf("invalid sync_interval %q: %w", rc.SyncInterval, err)
		}
		interval = d
	}
	return gitsync.Repository{
		Name:         rc.Name,
		CloneURL:     rc.CloneURL,
		Branch:       rc.Branch,
		Auth:         gitsync.AuthMode(rc.Auth),
		Token:        rc.Token,
		SSHKeyPath:   rc.SSHKeyPath,
		Paths:        rc.Paths,
		Exclude:      rc.Exclude,
		Priority:     gitsync.Priority(rc.Priority),
		Category:     rc.Category,
		SyncInterval: interval,
		Metadata:     rc.Metadata,
	}, nil
}

// SyncAndIndex runs one GitSync cycle for name, feeds every added or
// modified file through the DocumentProcessor (plugin processors take
// precedence, per PluginRegistry's fallback ordering), embeds the
// resulting chunks, and upserts them into the VectorIndex. Removed files
// have their chunks looked up by repository and file_path metadata and
// deleted one by one (see deleteFile).
func (p *Pipeline) SyncAndIndex(ctx context.Context, name string) (gitsync.ChangeSet, error) {
	changes, err := p.GitSync.SyncRepository(ctx, name)
	if err != nil {
		return changes, err
	}

	for _, path := range append(append([]string{}, changes.Added...), changes.Modified...) {
		if err := p.indexFile(ctx, name, path); err != nil {
			return changes, fmt.Errorf("app: indexing %s/%s: %w", name, path, err)
		}
	}
	for _, path := range changes.Removed {
		if err := p.deleteFile(ctx, name, path); err != nil {
			return changes, fmt.Errorf("app: deleting %s/%s: %w", name, path, err)
		}
	}
	return changes, nil
}

// deleteFile removes every chunk previously indexed for path within
// repository. Document IDs are content-hash-derived (see
// indexer.ComputeDocumentID), so a removed file's ID can't be recomputed
// without its old content; instead the matching documents are found by
// their stored file_path/repository metadata and deleted directly.
func (p *Pipeline) deleteFile(ctx context.Context, repository, path string) error {
	docs, err := p.Store.SearchByMetadata(ctx, map[string]interface{}{
		"repository": repository,
		"file_path":  path,
	}, 0)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := p.Store.Delete(ctx, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) indexFile(ctx context.Context, repository, path string) error {
	content, err := p.GitSync.ReadFile(repository, path)
	if err != nil {
		return err
	}

	_, chunks, err := plugin.ProcessWithFallback(ctx, p.Plugins.Processors, p.Processor, path, content, repository)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		var vec embedding.Vector
		if i < len(embeddings) && embeddings[i] != nil {
			vec = embeddings[i].Vector
		}
		docs[i] = vectorstore.ChunkToDocument(c, vec)
	}
	return p.Store.UpsertBatch(ctx, docs)
}

// Close releases GitSync and plugin resources. The VectorStore and
// Embedder are owned by the caller and are not closed here.
func (p *Pipeline) Close() error {
	p.Plugins.Close()
	return p.GitSync.Close()
}

// repoPriorities adapts gitsync.Sync to contextgen.RepositoryPriorities.
type repoPriorities struct {
	sync *gitsync.Sync
}

func (r repoPriorities) Priority(repository string) string {
	repo, err := r.sync.Repository(repository)
	if err != nil || repo.Priority == "" {
		return "medium"
	}
	return string(repo.Priority)
}

// storeCatalog adapts vectorstore.VectorStore to contextgen.CatalogProvider
// via an unfiltered, unlimited metadata scan.
type storeCatalog struct {
	store vectorstore.VectorStore
}

func (c storeCatalog) AllDocuments(ctx context.Context) []vectorstore.Document {
	docs, err := c.store.SearchByMetadata(ctx, nil, 0)
	if err != nil {
		return nil
	}
	return docs
}
