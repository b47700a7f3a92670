// Package plugin generalizes the embedding package's named-registry
// pattern into three extension points: per-extension document processors,
// named embedding providers, and named-strategy context re-rankers.
// Plugins are an extension hook, not on the critical path: every lookup
// in this package degrades to "no plugin" rather than failing its caller.
package plugin

import (
	"context"

	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/indexer"
)

// Lifecycle is implemented by every plugin kind. init receives the
// plugin's own configuration block; destroy releases resources at
// shutdown. Plugin hot-reload is not supported — both hooks run exactly
// once, at startup and shutdown respectively.
type Lifecycle interface {
	Init(config map[string]interface{}) error
	Destroy() error
}

// ProcessorPlugin supplies a DocumentProcessor for a set of file
// extensions (including the leading dot, e.g. ".adoc").
type ProcessorPlugin interface {
	Lifecycle
	Name() string
	Extensions() []string
	indexer.DocumentProcessor
}

// EmbedderPlugin supplies an embedding.Embedder under a registry name.
type EmbedderPlugin interface {
	Lifecycle
	Name() string
	embedding.Embedder
}

// RerankerPlugin re-scores a context generator's ranked chunks for the
// strategies it declares. It runs after the base ranker, so its input is
// already sorted by the base score.
type RerankerPlugin interface {
	Lifecycle
	Name() string
	Strategies() []contextgen.Strategy
	Rerank(ctx context.Context, query contextgen.Query, chunks []contextgen.RankedChunk) ([]contextgen.RankedChunk, error)
}
