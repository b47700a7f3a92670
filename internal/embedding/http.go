package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEmbedder calls a remote embedding service over HTTP, the "remote HTTP
// service" backend named in the EmbeddingProvider contract. It POSTs
// {"input": [...]} and expects {"data": [{"embedding": [...]}]} back,
// mirroring the request/response shape of common embedding APIs.
type HTTPEmbedder struct {
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewHTTPEmbedder builds an HTTPEmbedder. endpoint must accept a JSON POST
// body and return a JSON object whose "data" array holds one vector per input.
func NewHTTPEmbedder(endpoint, apiKey, model string, dimensions int) *HTTPEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HTTPEmbedder{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type httpEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type httpEmbedResponseItem struct {
	Embedding []float32 `json:"embedding"`
}

type httpEmbedResponse struct {
	Data []httpEmbedResponseItem `json:"data"`
}

// Embed embeds a single text via EmbedBatch.
func (h *HTTPEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	embeddings, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding: remote service returned no results")
	}
	return embeddings[0], nil
}

// EmbedBatch posts the batch to the remote endpoint in one request.
func (h *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(httpEmbedRequest{Input: texts, Model: h.model})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("embedding: remote service error (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding: unexpected status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed httpEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(parsed.Data))
	}

	result := make([]*Embedding, len(texts))
	for i, item := range parsed.Data {
		result[i] = &Embedding{
			Text:   texts[i],
			Vector: Vector(item.Embedding),
			Model:  h.model,
		}
	}
	return result, nil
}

// Dimensions returns the configured vector width.
func (h *HTTPEmbedder) Dimensions() int { return h.dimensions }

// Model returns the configured remote model identifier.
func (h *HTTPEmbedder) Model() string { return h.model }

// HTTPProvider implements Provider for the remote HTTP embedder backend.
type HTTPProvider struct{}

// Name returns the provider identifier.
func (p *HTTPProvider) Name() string { return "http" }

// Create instantiates an HTTPEmbedder from config keys endpoint, api_key,
// model, dimensions.
func (p *HTTPProvider) Create(config map[string]interface{}) (Embedder, error) {
	endpoint, _ := config["endpoint"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required for http provider")
	}
	apiKey, _ := config["api_key"].(string)
	model, _ := config["model"].(string)
	if model == "" {
		model = "http/default"
	}
	dimensions := 384
	if dim, ok := config["dimensions"].(int); ok {
		dimensions = dim
	} else if dim, ok := config["dimensions"].(float64); ok {
		dimensions = int(dim)
	}
	return NewHTTPEmbedder(endpoint, apiKey, model, dimensions), nil
}
