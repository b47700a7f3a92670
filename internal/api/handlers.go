package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
	"github.com/ferg-cod3s/docsyncer/internal/gitsync"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]interface{}{"error": fmt.Sprintf(format, args...)})
}

// generateContextRequest mirrors contextgen.Query over the wire.
type generateContextRequest struct {
	Task         string   `json:"task"`
	Language     string   `json:"language"`
	Framework    string   `json:"framework"`
	Context      string   `json:"context"`
	MaxResults   int      `json:"max_results"`
	Repositories []string `json:"repositories"`
	Categories   []string `json:"categories"`
	Strategy     string   `json:"strategy"`
	MaxTokens    int      `json:"max_tokens"`
}

func (req generateContextRequest) toQuery() contextgen.Query {
	return contextgen.Query{
		Task:         req.Task,
		Language:     req.Language,
		Framework:    req.Framework,
		Context:      req.Context,
		MaxResults:   req.MaxResults,
		Repositories: req.Repositories,
		Categories:   req.Categories,
		Strategy:     contextgen.Strategy(req.Strategy),
		MaxTokens:    req.MaxTokens,
	}
}

func (h *handlers) generateContext(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil || p.ContextGen == nil {
		writeError(w, http.StatusServiceUnavailable, "context generation is not configured")
		return
	}

	var req generateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	result, err := p.ContextGen.Generate(r.Context(), req.toQuery())
	if err != nil {
		h.reportError(r, err)
		writeError(w, http.StatusInternalServerError, "context generation failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) generateContextFormatted(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil || p.ContextGen == nil {
		writeError(w, http.StatusServiceUnavailable, "context generation is not configured")
		return
	}

	var req generateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	result, err := p.ContextGen.Generate(r.Context(), req.toQuery())
	if err != nil {
		h.reportError(r, err)
		writeError(w, http.StatusInternalServerError, "context generation failed: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.Content))
}

func (h *handlers) reposStatus(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "repository sync is not configured")
		return
	}

	name := r.URL.Query().Get("repository")
	if name != "" {
		repo, err := p.GitSync.Repository(name)
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown repository %q", name)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"repositories": []gitsync.Repository{repo}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repositories": p.GitSync.Repositories()})
}

type reposSyncRequest struct {
	Repository string `json:"repository"`
}

func (h *handlers) reposSync(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "repository sync is not configured")
		return
	}

	var req reposSyncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
	}

	if req.Repository == "" {
		results := make(map[string]interface{})
		errors := make(map[string]string)
		for _, repo := range p.GitSync.Repositories() {
			changes, err := p.SyncAndIndex(r.Context(), repo.Name)
			if err != nil {
				h.reportError(r, err)
				errors[repo.Name] = err.Error()
				continue
			}
			results[repo.Name] = changes
		}
		if len(errors) > 0 {
			writeJSON(w, http.StatusMultiStatus, map[string]interface{}{"results": results, "errors": errors})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
		return
	}

	changes, err := p.SyncAndIndex(r.Context(), req.Repository)
	if err != nil {
		h.reportError(r, err)
		writeError(w, http.StatusInternalServerError, "sync failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": map[string]interface{}{req.Repository: changes}})
}

// repoRequest mirrors config.RepositoryConfig for the add/update endpoints.
type repoRequest struct {
	Name         string            `json:"name"`
	CloneURL     string            `json:"clone_url"`
	Branch       string            `json:"branch"`
	Auth         string            `json:"auth"`
	Token        string            `json:"token"`
	SSHKeyPath   string            `json:"ssh_key_path"`
	Paths        []string          `json:"paths"`
	Exclude      []string          `json:"exclude"`
	Priority     string            `json:"priority"`
	Category     string            `json:"category"`
	SyncInterval string            `json:"sync_interval"`
	Metadata     map[string]string `json:"metadata"`
}

func (req repoRequest) toRepository() (gitsync.Repository, error) {
	var interval time.Duration
	if req.SyncInterval != "" && req.SyncInterval != "0" {
		d, err := time.ParseDuration(req.SyncInterval)
		if err != nil {
			return gitsync.Repository{}, fmt.Errorf("invalid sync_interval %q: %w", req.SyncInterval, err)
		}
		interval = d
	}
	return gitsync.Repository{
		Name:         req.Name,
		CloneURL:     req.CloneURL,
		Branch:       req.Branch,
		Auth:         gitsync.AuthMode(req.Auth),
		Token:        req.Token,
		SSHKeyPath:   req.SSHKeyPath,
		Paths:        req.Paths,
		Exclude:      req.Exclude,
		Priority:     gitsync.Priority(req.Priority),
		Category:     req.Category,
		SyncInterval: interval,
		Metadata:     req.Metadata,
	}, nil
}

func (h *handlers) reposAdd(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "repository sync is not configured")
		return
	}

	var req repoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	repo, err := req.toRepository()
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if err := p.GitSync.AddRepository(repo); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add repository: %v", err)
		return
	}
	if repo.SyncInterval > 0 {
		_ = p.GitSync.StartScheduledSync(repo.Name)
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (h *handlers) reposUpdate(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "repository sync is not configured")
		return
	}

	name := chi.URLParam(r, "name")
	var req repoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	req.Name = name

	repo, err := req.toRepository()
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	// AddRepository is idempotent by name, so re-registering re-applies
	// the updated configuration (new clone URL, priority, paths, etc).
	if err := p.GitSync.AddRepository(repo); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update repository: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (h *handlers) reposDelete(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "repository sync is not configured")
		return
	}

	name := chi.URLParam(r, "name")
	if err := p.GitSync.DeleteRepository(name); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete repository: %v", err)
		return
	}
	if err := p.Store.DeleteByRepository(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete indexed chunks: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil || p.ContextGen == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	q := r.URL.Query()
	query := contextgen.Query{
		Task: q.Get("q"),
	}
	if repo := q.Get("repository"); repo != "" {
		query.Repositories = []string{repo}
	}
	if category := q.Get("category"); category != "" {
		query.Categories = []string{category}
	}
	if strategy := q.Get("type"); strategy != "" {
		query.Strategy = contextgen.Strategy(strategy)
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			query.MaxResults = n
		}
	}

	result, err := p.ContextGen.Generate(r.Context(), query)
	if err != nil {
		h.reportError(r, err)
		writeError(w, http.StatusInternalServerError, "search failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":  result.Chunks,
		"strategy": result.Metadata.Strategy,
		"metadata": result.Metadata,
	})
}

func (h *handlers) searchMetadata(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	filter := map[string]interface{}{}
	for key, values := range r.URL.Query() {
		if key == "limit" || len(values) == 0 {
			continue
		}
		filter[key] = values[0]
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	docs, err := p.Store.SearchByMetadata(r.Context(), filter, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "metadata search failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": docs})
}

func (h *handlers) searchStats(w http.ResponseWriter, r *http.Request) {
	p := h.pipeline()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	statsProvider, ok := p.Store.(vectorstore.StatsProvider)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "vector store backend does not report stats")
		return
	}

	stats, err := statsProvider.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats unavailable: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) reportError(r *http.Request, err error) {
	if h.deps.ErrorHandler == nil {
		return
	}
	h.deps.ErrorHandler.HandleError(r.Context(), err, observability.ExtractErrorContext(r.Context(), "api"))
}
