package contextgen

import (
	"context"
	"strings"

	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// degradedSearch scans the in-process chunk catalog with a plain
// substring/token match, used when the EmbeddingProvider or VectorIndex
// is unavailable. Every returned chunk carries a constant score of 1.0;
// callers tag the result with strategy "simple_text".
func (g *Generator) degradedSearch(ctx context.Context, query Query) []RankedChunk {
	if g.Catalog == nil {
		return nil
	}

	tokens := tokenize(query.Task)
	if len(tokens) == 0 {
		return nil
	}

	var hits []RankedChunk
	for _, doc := range g.Catalog.AllDocuments(ctx) {
		if !passesCatalogFilter(doc, query) {
			continue
		}
		if !matchesTokens(doc.Content, tokens) {
			continue
		}
		hits = append(hits, RankedChunk{
			Document:    doc,
			Score:       1.0,
			Explanation: "simple text match (degraded mode)",
		})
	}
	return hits
}

func passesCatalogFilter(doc vectorstore.Document, query Query) bool {
	if len(query.Repositories) > 0 {
		repo, _ := doc.Metadata["repository"].(string)
		if !containsFold(query.Repositories, repo) {
			return false
		}
	}
	if len(query.Categories) > 0 {
		category, _ := doc.Metadata["category"].(string)
		if !containsFold(query.Categories, category) {
			return false
		}
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func matchesTokens(content string, tokens []string) bool {
	lower := strings.ToLower(content)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
