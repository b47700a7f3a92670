// Package contextgen re-ranks raw retrieval hits into a token-budgeted
// context bundle suitable for handing to a downstream caller (an agent,
// an MCP tool response, or a REST consumer).
package contextgen

import (
	"context"
	"time"

	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// Strategy selects how a query is retrieved before re-ranking.
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategyKeyword  Strategy = "keyword"
	StrategyHybrid   Strategy = "hybrid"

	// strategySimpleText marks results produced by the degraded,
	// EmbeddingProvider/VectorIndex-free fallback path.
	strategySimpleText = "simple_text"
)

// ProgressiveLevel caps result count for generateProgressive.
type ProgressiveLevel string

const (
	LevelOverview      ProgressiveLevel = "overview"
	LevelDetailed      ProgressiveLevel = "detailed"
	LevelComprehensive ProgressiveLevel = "comprehensive"
)

var progressiveLimits = map[ProgressiveLevel]int{
	LevelOverview:      3,
	LevelDetailed:      10,
	LevelComprehensive: 25,
}

var progressiveOrder = []ProgressiveLevel{LevelOverview, LevelDetailed, LevelComprehensive}

// Query carries everything generate needs to produce a ContextResult.
type Query struct {
	Task         string
	Language     string
	Framework    string
	Context      string
	MaxResults   int
	Repositories []string
	Categories   []string
	Strategy     Strategy
	MaxTokens    int
}

func (q Query) withDefaults() Query {
	if q.MaxResults <= 0 {
		q.MaxResults = 20
	}
	if q.Strategy == "" {
		q.Strategy = StrategyHybrid
	}
	if q.MaxTokens <= 0 {
		q.MaxTokens = defaultMaxTokens
	}
	return q
}

const (
	defaultScoreThreshold = 0.7
	defaultMaxTokens      = 8000
	candidateMultiplier   = 4
)

// PriorityWeights maps a repository's configured priority to a
// re-ranking multiplier.
type PriorityWeights struct {
	High   float32
	Medium float32
	Low    float32
}

// DefaultPriorityWeights matches spec §4.5's defaults.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{High: 1.5, Medium: 1.0, Low: 0.7}
}

func (w PriorityWeights) forPriority(priority string) float32 {
	switch priority {
	case "high":
		return w.High
	case "low":
		return w.Low
	default:
		return w.Medium
	}
}

// RankedChunk is a single chunk kept in a ContextResult, carrying its
// final re-ranking score and a human-readable explanation of why it
// matched.
type RankedChunk struct {
	Document    vectorstore.Document
	Score       float32
	Explanation string
}

// SourceAttribution summarizes one contributing file.
type SourceAttribution struct {
	FilePath   string
	Repository string
	Relevance  float32
}

// ResultMetadata is the `metadata` block of a ContextResult.
type ResultMetadata struct {
	Sources               []SourceAttribution
	TotalChunks           int
	TokensUsed            int
	Strategy              string
	Timestamp             time.Time
	RelevantRepositories  []string
	Confidence            float32
}

// ContextResult is generate's return value.
type ContextResult struct {
	Content   string
	Chunks    []RankedChunk
	Metadata  ResultMetadata
	HasMore   bool
	NextLevel ProgressiveLevel
}

// ContextGenerator re-ranks raw retrieval hits by priority/recency/
// framework match, enforces a token budget, and produces an attributed
// context bundle. Generator is the default implementation.
type ContextGenerator interface {
	Generate(ctx context.Context, query Query) (ContextResult, error)
	GenerateProgressive(ctx context.Context, query Query, level ProgressiveLevel) (ContextResult, error)
}
