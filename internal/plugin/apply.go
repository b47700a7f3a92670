package plugin

import (
	"context"
	"path/filepath"

	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/indexer"
)

// Registries bundles the three plugin registries so callers only need to
// wire one value through the pipeline.
type Registries struct {
	Processors *ProcessorRegistry
	Embedders  *EmbedderRegistry
	Rerankers  *RerankerRegistry
}

// NewRegistries builds an empty set of plugin registries.
func NewRegistries() *Registries {
	return &Registries{
		Processors: NewProcessorRegistry(),
		Embedders:  NewEmbedderRegistry(),
		Rerankers:  NewRerankerRegistry(),
	}
}

// Close destroys every registered plugin across all three registries.
func (r *Registries) Close() {
	r.Processors.Close()
	r.Embedders.Close()
	r.Rerankers.Close()
}

// ProcessWithFallback runs the plugin processor bound to filePath's
// extension, if any, falling back to def when no plugin is bound or the
// plugin's Process call returns an error.
func ProcessWithFallback(ctx context.Context, registry *ProcessorRegistry, def indexer.DocumentProcessor, filePath string, content []byte, repository string) (indexer.Document, []indexer.Chunk, error) {
	if registry != nil {
		if p, ok := registry.Get(filepath.Ext(filePath)); ok {
			if doc, chunks, err := p.Process(ctx, filePath, content, repository); err == nil {
				return doc, chunks, nil
			}
		}
	}
	return def.Process(ctx, filePath, content, repository)
}

// ApplyRerankers runs every plugin bound to strategy against chunks, in
// registration order, each receiving the previous plugin's output. A
// plugin whose Rerank call errors is skipped and the chunks it received
// pass through unchanged.
func ApplyRerankers(ctx context.Context, registry *RerankerRegistry, strategy contextgen.Strategy, query contextgen.Query, chunks []contextgen.RankedChunk) []contextgen.RankedChunk {
	if registry == nil {
		return chunks
	}
	for _, p := range registry.ForStrategy(string(strategy)) {
		if out, err := p.Rerank(ctx, query, chunks); err == nil {
			chunks = out
		}
	}
	return chunks
}
