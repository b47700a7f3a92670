package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/gitsync"
	"github.com/ferg-cod3s/docsyncer/internal/protocol"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// Documentation-retrieval tool names, layered on top of the context.*
// tool set in schema.go.
const (
	ToolSearchDocumentation = "search_documentation"
	ToolGenerateContext     = "generate_context"
	ToolGetRepositoryStatus = "get_repository_status"
	ToolSyncRepository      = "sync_repository"
)

// Prompt names exposed by prompts/list and prompts/get.
const (
	PromptExplainCode       = "explain_code"
	PromptWriteDocumentation = "write_documentation"
	PromptCodeExample       = "code_example"
)

// Resource URIs served from the docs:// scheme.
const (
	ResourceDocsStatus = "docs://status"
	ResourceDocsStats  = "docs://stats"
)

// SearchDocumentationRequest is the input for the search_documentation tool.
type SearchDocumentationRequest struct {
	Query        string   `json:"query"`
	Repositories []string `json:"repositories,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Language     string   `json:"language,omitempty"`
	Framework    string   `json:"framework,omitempty"`
	Strategy     string   `json:"strategy,omitempty"` // "semantic" | "keyword" | "hybrid"
	MaxResults   int      `json:"max_results,omitempty"`
}

// SearchDocumentationResponse is the output of the search_documentation tool.
type SearchDocumentationResponse struct {
	Results  []SearchResultItem `json:"results"`
	Strategy string             `json:"strategy"`
}

func (s *Server) handleSearchDocumentation(ctx context.Context, args json.RawMessage) (interface{}, error) {
	gen := s.contextGenerator()
	if gen == nil {
		return nil, pipelineNotConfiguredError()
	}

	var req SearchDocumentationRequest
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, &protocol.Error{Code: protocol.InvalidParams, Message: fmt.Sprintf("invalid parameters: %v", err)}
		}
	}
	if req.Query == "" {
		return nil, &protocol.Error{Code: protocol.InvalidParams, Message: "query is required"}
	}

	result, err := gen.Generate(ctx, contextgen.Query{
		Task:         req.Query,
		Language:     req.Language,
		Framework:    req.Framework,
		Repositories: req.Repositories,
		Categories:   req.Categories,
		Strategy:     contextgen.Strategy(req.Strategy),
		MaxResults:   req.MaxResults,
	})
	if err != nil {
		return nil, &protocol.Error{Code: protocol.InternalError, Message: err.Error()}
	}

	items := make([]SearchResultItem, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		items = append(items, SearchResultItem{
			ID:         c.Document.ID,
			Content:    c.Document.Content,
			Score:      c.Score,
			SourceType: "file",
			Metadata:   c.Document.Metadata,
		})
	}
	return SearchDocumentationResponse{Results: items, Strategy: result.Metadata.Strategy}, nil
}

// GenerateContextRequest is the input for the generate_context tool.
type GenerateContextRequest struct {
	Task             string   `json:"task"`
	Language         string   `json:"language,omitempty"`
	Framework        string   `json:"framework,omitempty"`
	Context          string   `json:"context,omitempty"`
	Repositories     []string `json:"repositories,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	Strategy         string   `json:"strategy,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty"`
	ProgressiveLevel string   `json:"progressive_level,omitempty"` // "overview" | "detailed" | "comprehensive"
}

// GenerateContextResponse is the output of the generate_context tool.
type GenerateContextResponse struct {
	Content    string                     `json:"content"`
	Metadata   contextgen.ResultMetadata  `json:"metadata"`
	HasMore    bool                       `json:"has_more"`
	NextLevel  contextgen.ProgressiveLevel `json:"next_level,omitempty"`
}

func (s *Server) handleGenerateContext(ctx context.Context, args json.RawMessage) (interface{}, error) {
	gen := s.contextGenerator()
	if gen == nil {
		return nil, pipelineNotConfiguredError()
	}

	var req GenerateContextRequest
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, &protocol.Error{Code: protocol.InvalidParams, Message: fmt.Sprintf("invalid parameters: %v", err)}
		}
	}
	if req.Task == "" {
		return nil, &protocol.Error{Code: protocol.InvalidParams, Message: "task is required"}
	}

	query := contextgen.Query{
		Task:         req.Task,
		Language:     req.Language,
		Framework:    req.Framework,
		Context:      req.Context,
		Repositories: req.Repositories,
		Categories:   req.Categories,
		Strategy:     contextgen.Strategy(req.Strategy),
		MaxTokens:    req.MaxTokens,
	}

	var result contextgen.ContextResult
	var err error
	if req.ProgressiveLevel != "" {
		result, err = gen.GenerateProgressive(ctx, query, contextgen.ProgressiveLevel(req.ProgressiveLevel))
	} else {
		result, err = gen.Generate(ctx, query)
	}
	if err != nil {
		return nil, &protocol.Error{Code: protocol.InternalError, Message: err.Error()}
	}

	return GenerateContextResponse{
		Content:   result.Content,
		Metadata:  result.Metadata,
		HasMore:   result.HasMore,
		NextLevel: result.NextLevel,
	}, nil
}

// GetRepositoryStatusRequest is the input for the get_repository_status tool.
type GetRepositoryStatusRequest struct {
	Repository string `json:"repository,omitempty"`
}

// RepositoryStatusItem summarizes one tracked repository's sync state.
type RepositoryStatusItem struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
	LastCommit   string `json:"last_commit,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// GetRepositoryStatusResponse is the output of the get_repository_status tool.
type GetRepositoryStatusResponse struct {
	Repositories []RepositoryStatusItem `json:"repositories"`
}

func (s *Server) handleGetRepositoryStatus(ctx context.Context, args json.RawMessage) (interface{}, error) {
	gs := s.gitSync()
	if gs == nil {
		return nil, pipelineNotConfiguredError()
	}

	var req GetRepositoryStatusRequest
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, &protocol.Error{Code: protocol.InvalidParams, Message: fmt.Sprintf("invalid parameters: %v", err)}
		}
	}

	if req.Repository != "" {
		repo, err := gs.Repository(req.Repository)
		if err != nil {
			return nil, &protocol.Error{Code: protocol.InvalidParams, Message: err.Error()}
		}
		return GetRepositoryStatusResponse{Repositories: []RepositoryStatusItem{repositoryStatusItem(repo)}}, nil
	}

	repos := gs.Repositories()
	items := make([]RepositoryStatusItem, 0, len(repos))
	for _, r := range repos {
		items = append(items, repositoryStatusItem(r))
	}
	return GetRepositoryStatusResponse{Repositories: items}, nil
}

// SyncRepositoryRequest is the input for the sync_repository tool.
type SyncRepositoryRequest struct {
	Repository string `json:"repository,omitempty"`
	All        bool   `json:"all,omitempty"`
}

// SyncRepositoryResult reports the outcome of one repository's sync.
type SyncRepositoryResult struct {
	Repository string `json:"repository"`
	Added      int    `json:"added"`
	Modified   int    `json:"modified"`
	Removed    int    `json:"removed"`
	Error      string `json:"error,omitempty"`
}

// SyncRepositoryResponse is the output of the sync_repository tool.
type SyncRepositoryResponse struct {
	Results []SyncRepositoryResult `json:"results"`
}

func (s *Server) handleSyncRepository(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.pipeline == nil {
		return nil, pipelineNotConfiguredError()
	}

	var req SyncRepositoryRequest
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, &protocol.Error{Code: protocol.InvalidParams, Message: fmt.Sprintf("invalid parameters: %v", err)}
		}
	}
	if req.Repository == "" && !req.All {
		return nil, &protocol.Error{Code: protocol.InvalidParams, Message: "repository is required unless all is true"}
	}

	var names []string
	if req.All {
		for _, r := range s.pipeline.GitSync.Repositories() {
			names = append(names, r.Name)
		}
	} else {
		names = []string{req.Repository}
	}

	results := make([]SyncRepositoryResult, 0, len(names))
	for _, name := range names {
		changes, err := s.pipeline.SyncAndIndex(ctx, name)
		item := SyncRepositoryResult{
			Repository: name,
			Added:      len(changes.Added),
			Modified:   len(changes.Modified),
			Removed:    len(changes.Removed),
		}
		if err != nil {
			item.Error = err.Error()
		}
		results = append(results, item)
	}
	return SyncRepositoryResponse{Results: results}, nil
}

func repositoryStatusItem(r gitsync.Repository) RepositoryStatusItem {
	item := RepositoryStatusItem{
		Name:     r.Name,
		Status:   string(r.Status),
		Priority: string(r.Priority),
		LastCommit: r.LastCommit,
		LastError:  r.LastError,
	}
	if !r.LastSyncedAt.IsZero() {
		item.LastSyncedAt = r.LastSyncedAt.Format(timeLayout)
	}
	return item
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func pipelineNotConfiguredError() error {
	return &protocol.Error{
		Code:    protocol.InternalError,
		Message: "documentation pipeline is not configured on this server",
	}
}

// readDocSyncResource serves docs://status and docs://stats. The second
// return value reports whether uri was recognized as a docs:// resource at
// all, independent of whether serving it succeeded.
func (s *Server) readDocSyncResource(ctx context.Context, uri string) (string, bool, error) {
	switch uri {
	case ResourceDocsStatus:
		if s.pipeline == nil {
			return "", true, fmt.Errorf("documentation pipeline is not configured")
		}
		repos := s.pipeline.GitSync.Repositories()
		items := make([]RepositoryStatusItem, 0, len(repos))
		for _, r := range repos {
			items = append(items, repositoryStatusItem(r))
		}
		b, err := json.Marshal(GetRepositoryStatusResponse{Repositories: items})
		if err != nil {
			return "", true, err
		}
		return string(b), true, nil
	case ResourceDocsStats:
		if s.vectorStore == nil {
			return "", true, fmt.Errorf("vector store is not configured")
		}
		statsProvider, ok := s.vectorStore.(vectorstore.StatsProvider)
		if !ok {
			return "", true, fmt.Errorf("vector store backend does not expose stats")
		}
		stats, err := statsProvider.Stats(ctx)
		if err != nil {
			return "", true, err
		}
		b, err := json.Marshal(stats)
		if err != nil {
			return "", true, err
		}
		return string(b), true, nil
	default:
		return "", false, nil
	}
}

// GetDocSyncResourceDefinitions returns the docs:// resource listing.
func GetDocSyncResourceDefinitions() []ResourceDefinition {
	return []ResourceDefinition{
		{
			URI:         ResourceDocsStatus,
			Name:        "Repository sync status",
			Description: "Current sync status for every tracked repository",
			MimeType:    "application/json",
		},
		{
			URI:         ResourceDocsStats,
			Name:        "Index statistics",
			Description: "Document/chunk counts and per-language breakdown from the vector index",
			MimeType:    "application/json",
		},
	}
}

// PromptDefinition describes an MCP prompt template.
type PromptDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one named argument a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is a single rendered message in a prompts/get response.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func getPromptDefinitions() []PromptDefinition {
	return []PromptDefinition{
		{
			Name:        PromptExplainCode,
			Description: "Explain what a piece of code does, using indexed documentation as supporting context",
			Arguments: []PromptArgument{
				{Name: "file_path", Description: "Path to the file to explain", Required: true},
				{Name: "language", Description: "Source language, for better context matching"},
			},
		},
		{
			Name:        PromptWriteDocumentation,
			Description: "Draft documentation for a file or module, grounded in related existing docs",
			Arguments: []PromptArgument{
				{Name: "file_path", Description: "Path to the file to document", Required: true},
				{Name: "audience", Description: "Intended reader, e.g. \"end user\" or \"contributor\""},
			},
		},
		{
			Name:        PromptCodeExample,
			Description: "Produce a usage example for a task, drawing on similar examples already indexed",
			Arguments: []PromptArgument{
				{Name: "task", Description: "What the example should demonstrate", Required: true},
				{Name: "language", Description: "Target language"},
				{Name: "framework", Description: "Target framework"},
			},
		},
	}
}

func (s *Server) handlePromptsList(ctx context.Context) (interface{}, error) {
	return map[string]interface{}{
		"prompts": getPromptDefinitions(),
	}, nil
}

// PromptsGetRequest represents a prompts/get request.
type PromptsGetRequest struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

func (s *Server) handlePromptsGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req PromptsGetRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &protocol.Error{Code: protocol.InvalidParams, Message: fmt.Sprintf("invalid parameters: %v", err)}
	}

	gen := s.contextGenerator()
	var supporting string
	if gen != nil {
		task := req.Arguments["task"]
		if task == "" {
			task = req.Arguments["file_path"]
		}
		if task != "" {
			result, err := gen.Generate(ctx, contextgen.Query{
				Task:      task,
				Language:  req.Arguments["language"],
				Framework: req.Arguments["framework"],
				MaxResults: 5,
			})
			if err == nil {
				supporting = result.Content
			}
		}
	}

	var text string
	switch req.Name {
	case PromptExplainCode:
		text = fmt.Sprintf("Explain what %s does.", req.Arguments["file_path"])
	case PromptWriteDocumentation:
		audience := req.Arguments["audience"]
		if audience == "" {
			audience = "contributor"
		}
		text = fmt.Sprintf("Write documentation for %s aimed at a %s.", req.Arguments["file_path"], audience)
	case PromptCodeExample:
		text = fmt.Sprintf("Write a usage example demonstrating: %s.", req.Arguments["task"])
	default:
		return nil, &protocol.Error{Code: protocol.MethodNotFound, Message: fmt.Sprintf("unknown prompt: %s", req.Name)}
	}

	if supporting != "" {
		text = fmt.Sprintf("%s\n\nSupporting context:\n%s", text, supporting)
	}

	return map[string]interface{}{
		"messages": []PromptMessage{{Role: "user", Content: text}},
	}, nil
}

// GetDocSyncToolDefinitions returns the search_documentation/generate_context/
// get_repository_status/sync_repository tool definitions.
func GetDocSyncToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolSearchDocumentation,
			Description: "Searches indexed repository documentation and code for content relevant to a query.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string"},
					"repositories": {"type": "array", "items": {"type": "string"}},
					"categories": {"type": "array", "items": {"type": "string"}},
					"language": {"type": "string"},
					"framework": {"type": "string"},
					"strategy": {"type": "string", "enum": ["semantic", "keyword", "hybrid"]},
					"max_results": {"type": "integer", "default": 20}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        ToolGenerateContext,
			Description: "Generates a token-budgeted, re-ranked context bundle for a task, with progressive detail levels.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task": {"type": "string"},
					"language": {"type": "string"},
					"framework": {"type": "string"},
					"context": {"type": "string"},
					"repositories": {"type": "array", "items": {"type": "string"}},
					"categories": {"type": "array", "items": {"type": "string"}},
					"strategy": {"type": "string", "enum": ["semantic", "keyword", "hybrid"]},
					"max_tokens": {"type": "integer", "default": 8000},
					"progressive_level": {"type": "string", "enum": ["overview", "detailed", "comprehensive"]}
				},
				"required": ["task"]
			}`),
		},
		{
			Name:        ToolGetRepositoryStatus,
			Description: "Reports GitSync's last-known sync status for one or every tracked repository.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"repository": {"type": "string", "description": "Repository name; omit for every repository"}
				}
			}`),
		},
		{
			Name:        ToolSyncRepository,
			Description: "Triggers an on-demand GitSync sync (and downstream re-indexing) for one or every tracked repository.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"repository": {"type": "string"},
					"all": {"type": "boolean", "default": false}
				}
			}`),
		},
	}
}
