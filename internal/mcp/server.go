package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ferg-cod3s/docsyncer/internal/app"
	"github.com/ferg-cod3s/docsyncer/internal/connectors"
	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/embedding"
	"github.com/ferg-cod3s/docsyncer/internal/gitsync"
	"github.com/ferg-cod3s/docsyncer/internal/indexer"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
	"github.com/ferg-cod3s/docsyncer/internal/protocol"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// Server implements the MCP protocol server
type Server struct {
	vectorStore    vectorstore.VectorStore
	connectorStore connectors.ConnectorStore
	embedder       embedding.Embedder
	metrics        *observability.MetricsCollector
	errorHandler   *observability.ErrorHandler
	indexer        indexer.IndexController
	searchCache    *SearchCache
	jsonrpcSrv     *protocol.Server

	// pipeline is the GitSync/ContextGenerator side of the server, used by
	// the search_documentation/generate_context/get_repository_status/
	// sync_repository tools. Nil when the server is running search-only
	// (no repositories configured).
	pipeline *app.Pipeline
}

// NewServer creates a new MCP server. connectorStore, metrics, errorHandler
// and idx may all be nil; the handlers that depend on them degrade
// gracefully (connector management and index control return an error,
// metrics are not recorded, errors are not reported).
func NewServer(
	reader io.Reader,
	writer io.Writer,
	vectorStore vectorstore.VectorStore,
	connectorStore connectors.ConnectorStore,
	embedder embedding.Embedder,
	metrics *observability.MetricsCollector,
	errorHandler *observability.ErrorHandler,
	idx indexer.IndexController,
) *Server {
	s := &Server{
		vectorStore:    vectorStore,
		connectorStore: connectorStore,
		embedder:       embedder,
		metrics:        metrics,
		errorHandler:   errorHandler,
		indexer:        idx,
		searchCache:    NewSearchCache(5*60, 500),
	}

	// Create JSON-RPC server with this server as handler
	s.jsonrpcSrv = protocol.NewServer(reader, writer, s)

	return s
}

// WithPipeline attaches the GitSync/ContextGenerator pipeline, enabling the
// documentation-retrieval tool set, resources, and prompts. Returns s for
// chaining at construction time.
func (s *Server) WithPipeline(p *app.Pipeline) *Server {
	s.pipeline = p
	return s
}

func (s *Server) contextGenerator() *contextgen.Generator {
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.ContextGen
}

func (s *Server) gitSync() gitsync.GitSync {
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.GitSync
}

// Handle implements protocol.Handler interface
func (s *Server) Handle(method string, params json.RawMessage) (interface{}, error) {
	ctx := context.Background()
	
	switch method {
	case "tools/list":
		return s.handleToolsList(ctx)
	case "tools/call":
		return s.handleToolsCall(ctx, params)
	case "resources/list":
		return s.handleResourcesList(ctx, params)
	case "resources/read":
		return s.handleResourcesRead(ctx, params)
	case "prompts/list":
		return s.handlePromptsList(ctx)
	case "prompts/get":
		return s.handlePromptsGet(ctx, params)
	default:
		return nil, &protocol.Error{
			Code:    protocol.MethodNotFound,
			Message: fmt.Sprintf("method not found: %s", method),
		}
	}
}

// Serve starts the MCP server
func (s *Server) Serve() error {
	return s.jsonrpcSrv.Serve()
}

// Close releases resources
func (s *Server) Close() error {
	if s.vectorStore != nil {
		return s.vectorStore.Close()
	}
	return nil
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(ctx context.Context) (interface{}, error) {
	return map[string]interface{}{
		"tools": GetToolDefinitions(),
	}, nil
}

// ToolCallRequest represents a tool call request
type ToolCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall executes a tool call
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req ToolCallRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &protocol.Error{
			Code:    protocol.InvalidParams,
			Message: fmt.Sprintf("invalid parameters: %v", err),
		}
	}
	
	switch req.Name {
	case ToolContextSearch:
		return s.handleContextSearch(ctx, req.Arguments)
	case ToolContextGetRelatedInfo:
		return s.handleGetRelatedInfo(ctx, req.Arguments)
	case ToolContextIndexControl:
		return s.handleIndexControl(ctx, req.Arguments)
	case ToolContextConnectorManagement:
		return s.handleConnectorManagement(ctx, req.Arguments)
	case ToolContextExplain:
		return s.handleContextExplain(ctx, req.Arguments)
	case ToolContextGrep:
		return s.handleContextGrep(ctx, req.Arguments)
	case ToolSearchDocumentation:
		return s.handleSearchDocumentation(ctx, req.Arguments)
	case ToolGenerateContext:
		return s.handleGenerateContext(ctx, req.Arguments)
	case ToolGetRepositoryStatus:
		return s.handleGetRepositoryStatus(ctx, req.Arguments)
	case ToolSyncRepository:
		return s.handleSyncRepository(ctx, req.Arguments)
	default:
		return nil, &protocol.Error{
			Code:    protocol.MethodNotFound,
			Message: fmt.Sprintf("unknown tool: %s", req.Name),
		}
	}
}

// ResourcesListRequest represents a resources/list request
type ResourcesListRequest struct {
	URI string `json:"uri,omitempty"`
}

// handleResourcesList returns available resources
func (s *Server) handleResourcesList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req ResourcesListRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, &protocol.Error{
				Code:    protocol.InvalidParams,
				Message: fmt.Sprintf("invalid parameters: %v", err),
			}
		}
	}
	
	resources := []ResourceDefinition{
		{
			URI:         fmt.Sprintf("%s://%s/", ResourceScheme, ResourceFiles),
			Name:        "Indexed Files",
			Description: "Browse indexed project files",
			MimeType:    "application/x-directory",
		},
	}
	resources = append(resources, GetDocSyncResourceDefinitions()...)
	return map[string]interface{}{
		"resources": resources,
	}, nil
}

// ResourcesReadRequest represents a resources/read request
type ResourcesReadRequest struct {
	URI string `json:"uri"`
}

// handleResourcesRead returns resource content
func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req ResourcesReadRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &protocol.Error{
			Code:    protocol.InvalidParams,
			Message: fmt.Sprintf("invalid parameters: %v", err),
		}
	}
	
	if content, ok, err := s.readDocSyncResource(ctx, req.URI); ok {
		if err != nil {
			return nil, &protocol.Error{Code: protocol.InternalError, Message: err.Error()}
		}
		return map[string]interface{}{
			"contents": []map[string]interface{}{
				{
					"uri":      req.URI,
					"mimeType": "application/json",
					"text":     content,
				},
			},
		}, nil
	}

	// Any other URI gets a text/plain placeholder; file contents are not read
	return map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"uri":      req.URI,
				"mimeType": "text/plain",
				"text":     "Resource content not yet implemented",
			},
		},
	}, nil
}
