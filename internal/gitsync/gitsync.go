// Package gitsync clones and periodically refreshes documentation
// repositories, producing per-file change sets for the indexing pipeline.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthMode selects how GitSync authenticates against a repository's remote.
type AuthMode string

const (
	AuthNone  AuthMode = "none"
	AuthToken AuthMode = "token"
	AuthSSH   AuthMode = "ssh"
)

// Priority influences ContextGenerator re-ranking; it carries no meaning
// inside GitSync itself beyond being stored and surfaced with the repository.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is the repository's last-known sync state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Repository is the unit of sync.
type Repository struct {
	Name         string            // stable, unique per configuration
	CloneURL     string
	Branch       string
	Auth         AuthMode
	Token        string // used when Auth == AuthToken; the caller copies it from the repository's token config field
	SSHKeyPath   string // used when Auth == AuthSSH
	Paths        []string // include globs; empty means "all"
	Exclude      []string // exclude globs
	Priority     Priority
	Category     string
	SyncInterval time.Duration // 0 disables scheduled sync
	Metadata     map[string]string

	Status       Status
	LastError    string
	LastErrorAt  time.Time
	LastSyncedAt time.Time
	LastCommit   string
}

// ChangeSet is the result of a single sync: paths added, modified, or
// removed relative to the previously recorded commit.
type ChangeSet struct {
	Repository string
	Added      []string
	Modified   []string
	Removed    []string
	NewCommit  string
}

// IsEmpty reports whether the sync produced no file-level changes.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

var (
	// ErrRepositoryNotFound is returned when an operation names an
	// unregistered repository.
	ErrRepositoryNotFound = errors.New("gitsync: repository not found")
	// ErrSyncInProgress is returned by SyncRepository when a sync for the
	// same repository is already in flight.
	ErrSyncInProgress = errors.New("gitsync: sync already in progress")
	// ErrPermanentAuthFailure marks an auth error that should halt the
	// repository's schedule rather than retry.
	ErrPermanentAuthFailure = errors.New("gitsync: permanent auth failure")
)

// FileChange is a single processed file ready for document processing.
type FileChange struct {
	Repository string
	FilePath   string
	Content    []byte
	Removed    bool
}

// SyncError wraps a repository-scoped failure with enough context for the
// caller to decide whether to keep retrying.
type SyncError struct {
	Repository string
	Err        error
	Permanent  bool
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("gitsync: %s: %v", e.Repository, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// GitSync clones/fetches repositories, schedules periodic refresh, and
// produces per-file change events for the indexing pipeline.
type GitSync interface {
	// AddRepository registers a repository for syncing. Idempotent by name.
	AddRepository(repo Repository) error

	// SyncRepository clones (first call) or fetches + fast-forwards
	// (subsequent calls) the named repository, returning the file-level
	// change set. Safe to call concurrently for different repositories;
	// a call for a repository whose sync is already in flight returns
	// ErrSyncInProgress.
	SyncRepository(ctx context.Context, name string) (ChangeSet, error)

	// SyncAll syncs every registered repository, bounded by the
	// configured concurrency limit.
	SyncAll(ctx context.Context) (map[string]ChangeSet, error)

	// StartScheduledSync installs a periodic sync task for name at its
	// configured SyncInterval. A zero interval is a no-op.
	StartScheduledSync(name string) error

	// StopScheduledSync cancels the periodic task for name, if any.
	StopScheduledSync(name string) error

	// DeleteRepository removes the repository's clone directory and
	// cancels any scheduled task.
	DeleteRepository(name string) error

	// Repository returns the current state of a registered repository.
	Repository(name string) (Repository, error)

	// Repositories lists all registered repositories.
	Repositories() []Repository

	// ReadFile returns the current on-disk content of path within the
	// named repository's working tree, applying binary sniffing.
	ReadFile(name string, path string) ([]byte, error)

	// Close stops all scheduled tasks and releases resources.
	Close() error
}
