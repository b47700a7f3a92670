package contextgen

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// RepositoryPriorities resolves a repository's configured priority
// ("high"|"medium"|"low") for use in re-ranking. Generator treats an
// unresolved or empty value as "medium".
type RepositoryPriorities interface {
	Priority(repository string) string
}

// CatalogProvider exposes the full in-process chunk catalog, independent
// of the VectorIndex, for the degraded simple-text search path.
type CatalogProvider interface {
	AllDocuments(ctx context.Context) []vectorstore.Document
}

// Generator implements the ContextGenerator contract: re-rank raw
// retrieval hits by priority/recency/framework match, enforce a token
// budget, and assemble attributed context text.
type Generator struct {
	Embedder       embedding.Embedder
	Store          vectorstore.VectorStore
	Catalog        CatalogProvider
	Priorities     RepositoryPriorities
	Weights        PriorityWeights
	ScoreThreshold float32
}

// NewGenerator builds a Generator with spec-default weights and score
// threshold; catalog and priorities may be nil (degraded mode and
// priority weighting degrade gracefully to neutral behavior).
func NewGenerator(embedder embedding.Embedder, store vectorstore.VectorStore, catalog CatalogProvider, priorities RepositoryPriorities) *Generator {
	return &Generator{
		Embedder:       embedder,
		Store:          store,
		Catalog:        catalog,
		Priorities:     priorities,
		Weights:        DefaultPriorityWeights(),
		ScoreThreshold: defaultScoreThreshold,
	}
}

// Generate runs the full re-ranking pipeline for query, falling back to
// degraded simple-text search if embedding or vector search fails.
func (g *Generator) Generate(ctx context.Context, query Query) (ContextResult, error) {
	return g.generateWithLimit(ctx, query, 0)
}

// GenerateProgressive caps the result count per level and reports whether
// a further level would return more results.
func (g *Generator) GenerateProgressive(ctx context.Context, query Query, level ProgressiveLevel) (ContextResult, error) {
	limit, ok := progressiveLimits[level]
	if !ok {
		limit = progressiveLimits[LevelOverview]
		level = LevelOverview
	}
	result, err := g.generateWithLimit(ctx, query, limit)
	if err != nil {
		return ContextResult{}, err
	}

	result.HasMore = false
	for i, lvl := range progressiveOrder {
		if lvl == level && i+1 < len(progressiveOrder) {
			next := progressiveOrder[i+1]
			if len(result.Chunks) >= limit {
				result.HasMore = true
				result.NextLevel = next
			}
		}
	}
	return result, nil
}

func (g *Generator) generateWithLimit(ctx context.Context, query Query, progressiveLimit int) (ContextResult, error) {
	query = query.withDefaults()
	maxResults := query.MaxResults
	if progressiveLimit > 0 && progressiveLimit < maxResults {
		maxResults = progressiveLimit
	}

	hits, degraded, err := g.retrieve(ctx, query, maxResults)
	if err != nil {
		return ContextResult{}, err
	}

	var ranked []RankedChunk
	if degraded {
		ranked = hits // already scored/explained by the degraded path
	} else {
		ranked = g.rerank(hits, query)
	}

	ranked = dedupeBySectionKey(ranked)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	kept, tokensUsed := enforceTokenBudget(ranked, query.MaxTokens)

	strategy := string(query.Strategy)
	if degraded {
		strategy = strategySimpleText
	}

	return ContextResult{
		Content:  assembleContent(kept),
		Chunks:   kept,
		Metadata: buildMetadata(kept, tokensUsed, strategy),
	}, nil
}

// retrieve performs the normal embed+search path, falling back to the
// degraded in-process scan on any EmbeddingProvider/VectorIndex failure.
// The bool return reports whether the degraded path was used.
func (g *Generator) retrieve(ctx context.Context, query Query, maxResults int) ([]RankedChunk, bool, error) {
	if g.Embedder == nil || g.Store == nil {
		return g.degradedSearch(ctx, query), true, nil
	}

	emb, err := g.Embedder.Embed(ctx, query.Task)
	if err != nil {
		return g.degradedSearch(ctx, query), true, nil
	}

	filter := buildFilter(query)
	results, err := g.Store.SearchVector(ctx, emb.Vector, vectorstore.SearchOptions{
		Limit:     maxResults * candidateMultiplier,
		Threshold: g.ScoreThreshold,
		Filters:   filter,
	})
	if err != nil {
		return g.degradedSearch(ctx, query), true, nil
	}

	chunks := make([]RankedChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, RankedChunk{Document: r.Document, Score: r.Score})
	}
	return chunks, false, nil
}

// buildFilter turns query's repository/category lists into VectorStore
// predicates. Multiple values are passed through as-is (matchesFilter
// treats a []string as an "$in"/OR predicate) rather than being silently
// dropped, matching the degraded path's containsFold membership check in
// passesCatalogFilter.
func buildFilter(query Query) map[string]interface{} {
	filter := map[string]interface{}{}
	if len(query.Repositories) == 1 {
		filter["repository"] = query.Repositories[0]
	} else if len(query.Repositories) > 1 {
		filter["repository"] = query.Repositories
	}
	if len(query.Categories) == 1 {
		filter["category"] = query.Categories[0]
	} else if len(query.Categories) > 1 {
		filter["category"] = query.Categories
	}
	return filter
}

// rerank applies the spec §4.5 re-ranking formula:
//
//	final = semantic × priorityWeight[repo.priority] ×
//	        (1 + 0.15·languageMatch + 0.15·frameworkMatch + 0.10·categoryMatch)
func (g *Generator) rerank(hits []RankedChunk, query Query) []RankedChunk {
	out := make([]RankedChunk, 0, len(hits))
	for _, hit := range hits {
		meta := hit.Document.Metadata
		repository, _ := meta["repository"].(string)
		priority := "medium"
		if g.Priorities != nil {
			if p := g.Priorities.Priority(repository); p != "" {
				priority = p
			}
		}
		priorityWeight := g.Weights.forPriority(priority)

		languageMatch := matchFires(meta, "language", query.Language)
		frameworkMatch := matchFires(meta, "framework", query.Framework)
		categoryMatch := matchesAny(meta, "category", query.Categories)

		boost := 1.0 + 0.15*languageMatch + 0.15*frameworkMatch + 0.10*categoryMatch
		final := hit.Score * priorityWeight * float32(boost)

		hit.Score = final
		hit.Explanation = explain(languageMatch, frameworkMatch, categoryMatch, priority)
		out = append(out, hit)
	}
	return out
}

func matchFires(meta map[string]interface{}, key, hint string) float64 {
	if hint == "" {
		return 0
	}
	actual, _ := meta[key].(string)
	if strings.EqualFold(actual, hint) {
		return 1
	}
	return 0
}

func matchesAny(meta map[string]interface{}, key string, hints []string) float64 {
	if len(hints) == 0 {
		return 0
	}
	actual, _ := meta[key].(string)
	if actual == "" {
		return 0
	}
	for _, hint := range hints {
		if strings.EqualFold(actual, hint) {
			return 1
		}
	}
	return 0
}

func explain(languageMatch, frameworkMatch, categoryMatch float64, priority string) string {
	var fired []string
	if languageMatch > 0 {
		fired = append(fired, "language match")
	}
	if frameworkMatch > 0 {
		fired = append(fired, "framework match")
	}
	if categoryMatch > 0 {
		fired = append(fired, "category match")
	}
	if len(fired) == 0 {
		return fmt.Sprintf("%s priority repository", priority)
	}
	return strings.Join(fired, ", ") + fmt.Sprintf(" (%s priority repository)", priority)
}

// dedupeBySectionKey keeps the max-scoring chunk per (filepath, section).
func dedupeBySectionKey(chunks []RankedChunk) []RankedChunk {
	best := make(map[string]RankedChunk)
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		key := sectionKey(c.Document)
		existing, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = c
			continue
		}
		if c.Score > existing.Score {
			best[key] = c
		}
	}
	out := make([]RankedChunk, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func sectionKey(doc vectorstore.Document) string {
	filePath, _ := doc.Metadata["file_path"].(string)
	section, _ := doc.Metadata["section"].(string)
	return filePath + "::" + section
}

// estimateTokens approximates token count as chars/4, per spec §4.5.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// enforceTokenBudget accumulates chunks until the running token estimate
// would exceed maxTokens, truncating at a chunk boundary.
func enforceTokenBudget(chunks []RankedChunk, maxTokens int) ([]RankedChunk, int) {
	var kept []RankedChunk
	used := 0
	for _, c := range chunks {
		t := estimateTokens(c.Document.Content)
		if used+t > maxTokens && len(kept) > 0 {
			break
		}
		kept = append(kept, c)
		used += t
	}
	return kept, used
}

func assembleContent(chunks []RankedChunk) string {
	var b strings.Builder
	var currentRepo, currentFile string
	for _, c := range chunks {
		repo, _ := c.Document.Metadata["repository"].(string)
		file, _ := c.Document.Metadata["file_path"].(string)
		if repo != currentRepo || file != currentFile {
			fmt.Fprintf(&b, "\n## %s / %s\n\n", repo, file)
			currentRepo, currentFile = repo, file
		}
		b.WriteString(c.Document.Content)
		b.WriteString("\n\n")
		if c.Explanation != "" {
			fmt.Fprintf(&b, "_relevance: %s_\n\n", c.Explanation)
		}
	}
	return strings.TrimSpace(b.String())
}

func buildMetadata(chunks []RankedChunk, tokensUsed int, strategy string) ResultMetadata {
	sources := make([]SourceAttribution, 0, len(chunks))
	repoSet := make(map[string]struct{})
	var confidenceSum float32
	for _, c := range chunks {
		repo, _ := c.Document.Metadata["repository"].(string)
		file, _ := c.Document.Metadata["file_path"].(string)
		sources = append(sources, SourceAttribution{FilePath: file, Repository: repo, Relevance: c.Score})
		if repo != "" {
			repoSet[repo] = struct{}{}
		}
		confidenceSum += c.Score
	}
	repos := make([]string, 0, len(repoSet))
	for r := range repoSet {
		repos = append(repos, r)
	}
	sort.Strings(repos)

	var confidence float32
	if len(chunks) > 0 {
		confidence = confidenceSum / float32(len(chunks))
	}

	return ResultMetadata{
		Sources:              sources,
		TotalChunks:          len(chunks),
		TokensUsed:           tokensUsed,
		Strategy:             strategy,
		Timestamp:            time.Now(),
		RelevantRepositories: repos,
		Confidence:           confidence,
	}
}
