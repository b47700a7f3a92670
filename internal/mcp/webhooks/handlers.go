// Package webhooks exposes the HTTP receivers that let a git host push
// change notifications into the pipeline instead of waiting on the next
// scheduled sync.
package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferg-cod3s/docsyncer/internal/app"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
)

// Provider identifies which webhook payload shape a request carries.
// Signature verification and the event-type header differ per provider;
// the sync trigger itself does not.
type Provider string

const (
	ProviderGitHub  Provider = "github"
	ProviderGitLab  Provider = "gitlab"
	ProviderGeneric Provider = "generic"
)

// WebhookHandler turns provider push notifications into SyncAndIndex
// calls against the shared pipeline. Repositories are looked up by name
// from the URL (the path's `:name` segment), not by a separate connector
// registry, since GitSync already owns the set of tracked repositories.
type WebhookHandler struct {
	pipeline     *app.Pipeline
	errorHandler *observability.ErrorHandler
}

// NewWebhookHandler creates a webhook handler bound to pipeline. errorHandler
// may be nil; failures are then only returned to the caller, not reported.
func NewWebhookHandler(pipeline *app.Pipeline, errorHandler *observability.ErrorHandler) *WebhookHandler {
	return &WebhookHandler{
		pipeline:     pipeline,
		errorHandler: errorHandler,
	}
}

// Handle processes POST /api/webhooks/{provider}/{name}. It verifies the
// payload signature against the target repository's configured webhook
// secret (gitsync.Repository.Metadata["webhook_secret"]), decides whether
// the event type warrants a sync, and if so runs SyncAndIndex for name.
func (wh *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	provider := Provider(routeParam(r, "provider"))
	name := routeParam(r, "name")
	if name == "" {
		http.Error(w, "missing repository name", http.StatusBadRequest)
		return
	}

	if wh.pipeline == nil {
		http.Error(w, "webhook sync is not configured", http.StatusServiceUnavailable)
		return
	}

	repo, err := wh.pipeline.GitSync.Repository(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("unknown repository %q: %v", name, err), http.StatusNotFound)
		return
	}

	payload, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if secret := repo.Metadata["webhook_secret"]; secret != "" {
		if !verifySignature(provider, payload, signatureHeader(provider, r), secret) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	if !eventTriggersSync(provider, r) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("event ignored"))
		return
	}

	changes, err := wh.pipeline.SyncAndIndex(ctx, name)
	if err != nil {
		if wh.errorHandler != nil {
			wh.errorHandler.HandleError(ctx, err, observability.ExtractErrorContext(ctx, "webhook"))
		}
		http.Error(w, fmt.Sprintf("sync failed: %v", err), http.StatusInternalServerError)
		return
	}

	if wh.errorHandler != nil {
		successCtx := observability.ExtractErrorContext(ctx, "webhook")
		successCtx.ErrorType = "success"
		successCtx.Duration = time.Since(start)
		wh.errorHandler.HandleError(ctx, nil, successCtx)
	}

	log.Printf("webhook sync for %s/%s: +%d ~%d -%d", provider, name, len(changes.Added), len(changes.Modified), len(changes.Removed))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("sync triggered"))
}

// routeParam reads a chi URL parameter, falling back to the equivalent
// query parameter so the handler also works when mounted outside chi's
// router (e.g. in tests that build *http.Request directly).
func routeParam(r *http.Request, key string) string {
	if v := chi.URLParam(r, key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

// eventTriggersSync reports whether the provider's event-type header
// indicates a push to the default branch or equivalent content change.
// Non-push events (issue comments, reviews, etc.) are acknowledged but
// otherwise ignored, since this service only mirrors repository content.
func eventTriggersSync(provider Provider, r *http.Request) bool {
	switch provider {
	case ProviderGitHub:
		event := r.Header.Get("X-GitHub-Event")
		return event == "" || event == "push"
	case ProviderGitLab:
		event := r.Header.Get("X-Gitlab-Event")
		return event == "" || strings.EqualFold(event, "Push Hook")
	default:
		return true
	}
}

func signatureHeader(provider Provider, r *http.Request) string {
	switch provider {
	case ProviderGitHub:
		return r.Header.Get("X-Hub-Signature-256")
	case ProviderGitLab:
		return r.Header.Get("X-Gitlab-Token")
	default:
		return r.Header.Get("X-Webhook-Signature")
	}
}

// verifySignature checks payload against signature using the provider's
// convention: GitHub and generic webhooks send an HMAC-SHA256 digest
// (`sha256=<hex>`), while GitLab sends the shared secret verbatim in a
// token header.
func verifySignature(provider Provider, payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	if provider == ProviderGitLab {
		return hmac.Equal([]byte(signature), []byte(secret))
	}

	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	expected := signature[len(prefix):]

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	actual := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(actual))
}
