package gitsync

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gossh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

// Config configures a Sync instance.
type Config struct {
	BaseDir           string        // root directory under which clones live (data/repos/<name>)
	MaxConcurrentSyncs int          // default 4
	RetryAttempts     int           // default 3
	RetryBaseDelay    time.Duration // default 1s
	RetryMaxDelay     time.Duration // default 30s
}

func (c Config) withDefaults() Config {
	if c.BaseDir == "" {
		c.BaseDir = "data/repos"
	}
	if c.MaxConcurrentSyncs <= 0 {
		c.MaxConcurrentSyncs = 4
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 30 * time.Second
	}
	return c
}

// Sync is the go-git-backed GitSync implementation.
type Sync struct {
	cfg Config

	mu    sync.RWMutex
	repos map[string]*Repository

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	schedMu   sync.Mutex
	schedules map[string]context.CancelFunc
}

// New creates a Sync using cfg, applying defaults for unset fields.
func New(cfg Config) *Sync {
	cfg = cfg.withDefaults()
	return &Sync{
		cfg:       cfg,
		repos:     make(map[string]*Repository),
		locks:     make(map[string]*sync.Mutex),
		schedules: make(map[string]context.CancelFunc),
	}
}

func (s *Sync) AddRepository(repo Repository) error {
	if repo.Name == "" {
		return fmt.Errorf("gitsync: repository name required")
	}
	if repo.Branch == "" {
		repo.Branch = "main"
	}
	if repo.Priority == "" {
		repo.Priority = PriorityMedium
	}
	repo.Status = StatusPending

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.repos[repo.Name]; ok {
		// Idempotent re-registration: preserve sync state, refresh config fields.
		repo.Status = existing.Status
		repo.LastSyncedAt = existing.LastSyncedAt
		repo.LastCommit = existing.LastCommit
		repo.LastError = existing.LastError
		repo.LastErrorAt = existing.LastErrorAt
	}
	s.repos[repo.Name] = &repo
	return nil
}

func (s *Sync) Repository(name string) (Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.repos[name]
	if !ok {
		return Repository{}, ErrRepositoryNotFound
	}
	return *r, nil
}

func (s *Sync) Repositories() []Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Repository, 0, len(s.repos))
	for _, r := range s.repos {
		out = append(out, *r)
	}
	return out
}

// SyncAll syncs every registered repository, bounded by MaxConcurrentSyncs.
// A per-repository failure is recorded on that repository's status but does
// not stop the others from syncing.
func (s *Sync) SyncAll(ctx context.Context) (map[string]ChangeSet, error) {
	names := make([]string, 0)
	s.mu.RLock()
	for name := range s.repos {
		names = append(names, name)
	}
	s.mu.RUnlock()

	results := make(map[string]ChangeSet)
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentSyncs)
	for _, name := range names {
		name := name
		g.Go(func() error {
			changes, err := s.SyncRepository(gctx, name)
			if err != nil {
				return nil // recorded on the repository's Status; don't abort siblings
			}
			resultsMu.Lock()
			results[name] = changes
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Sync) lockFor(name string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Sync) repoDir(name string) string {
	return filepath.Join(s.cfg.BaseDir, name)
}

// SyncRepository clones or fetches the named repository and returns the
// file-level change set, retrying transient failures with exponential
// backoff.
func (s *Sync) SyncRepository(ctx context.Context, name string) (ChangeSet, error) {
	lock := s.lockFor(name)
	if !lock.TryLock() {
		return ChangeSet{}, ErrSyncInProgress
	}
	defer lock.Unlock()

	s.mu.Lock()
	repo, ok := s.repos[name]
	if !ok {
		s.mu.Unlock()
		return ChangeSet{}, ErrRepositoryNotFound
	}
	repo.Status = StatusSyncing
	s.mu.Unlock()

	var changes ChangeSet
	var lastErr error
	delay := s.cfg.RetryBaseDelay
	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		changes, lastErr = s.syncOnce(ctx, repo)
		if lastErr == nil {
			s.mu.Lock()
			repo.Status = StatusReady
			repo.LastSyncedAt = time.Now()
			repo.LastCommit = changes.NewCommit
			repo.LastError = ""
			s.mu.Unlock()
			return changes, nil
		}

		var syncErr *SyncError
		if asSyncError(lastErr, &syncErr) && syncErr.Permanent {
			break
		}
		if attempt == s.cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			s.mu.Lock()
			repo.Status = StatusError
			repo.LastError = ctx.Err().Error()
			repo.LastErrorAt = time.Now()
			s.mu.Unlock()
			return ChangeSet{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.cfg.RetryMaxDelay {
			delay = s.cfg.RetryMaxDelay
		}
	}

	s.mu.Lock()
	repo.Status = StatusError
	repo.LastError = lastErr.Error()
	repo.LastErrorAt = time.Now()
	s.mu.Unlock()
	return ChangeSet{}, lastErr
}

func asSyncError(err error, target **SyncError) bool {
	se, ok := err.(*SyncError)
	if ok {
		*target = se
	}
	return ok
}

func (s *Sync) syncOnce(ctx context.Context, repo *Repository) (ChangeSet, error) {
	dir := s.repoDir(repo.Name)
	auth, err := s.authMethod(*repo)
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err, Permanent: true}
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		return s.cloneFresh(ctx, repo, dir, auth)
	}
	return s.fetchIncremental(ctx, repo, dir, auth)
}

func (s *Sync) cloneFresh(ctx context.Context, repo *Repository, dir string, auth transport.AuthMethod) (ChangeSet, error) {
	r, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           repo.CloneURL,
		ReferenceName: plumbing.NewBranchReferenceName(repo.Branch),
		SingleBranch:  true,
		Depth:         1,
		Auth:          auth,
	})
	if err != nil {
		return ChangeSet{}, classifyGitError(repo.Name, err)
	}

	head, err := r.Head()
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}

	paths, err := s.walkTree(r, head.Hash(), repo)
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}

	return ChangeSet{
		Repository: repo.Name,
		Added:      paths,
		NewCommit:  head.Hash().String(),
	}, nil
}

func (s *Sync) fetchIncremental(ctx context.Context, repo *Repository, dir string, auth transport.AuthMethod) (ChangeSet, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}

	oldHead, err := r.Head()
	var oldHash plumbing.Hash
	haveOldHash := err == nil
	if haveOldHash {
		oldHash = oldHead.Hash()
	}

	err = r.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       auth,
		Force:      true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return ChangeSet{}, classifyGitError(repo.Name, err)
	}

	remoteRef, err := r.Reference(plumbing.NewRemoteReferenceName("origin", repo.Branch), true)
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}

	wt, err := r.Worktree()
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Hash:  remoteRef.Hash(),
		Force: true,
	}); err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}

	localRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(repo.Branch), remoteRef.Hash())
	if err := r.Storer.SetReference(localRef); err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}

	if !haveOldHash || oldHash == remoteRef.Hash() {
		paths, err := s.walkTree(r, remoteRef.Hash(), repo)
		if err != nil {
			return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
		}
		changes := ChangeSet{Repository: repo.Name, NewCommit: remoteRef.Hash().String()}
		if !haveOldHash {
			changes.Added = paths
		}
		return changes, nil
	}

	changes, err := s.diffCommits(r, oldHash, remoteRef.Hash(), repo)
	if err != nil {
		return ChangeSet{}, &SyncError{Repository: repo.Name, Err: err}
	}
	changes.Repository = repo.Name
	changes.NewCommit = remoteRef.Hash().String()
	return changes, nil
}

// walkTree performs a full filesystem walk of commit's tree, applying the
// repository's include/exclude filters and binary-content sniffing. Used
// when no previous commit is known.
func (s *Sync) walkTree(r *git.Repository, commit plumbing.Hash, repo *Repository) ([]string, error) {
	c, err := r.CommitObject(commit)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if !matchesFilters(f.Name, repo.Paths, repo.Exclude) {
			return nil
		}
		isBinary, err := f.IsBinary()
		if err == nil && isBinary {
			return nil
		}
		paths = append(paths, f.Name)
		return nil
	})
	return paths, err
}

// diffCommits compares two commit trees and classifies each changed path
// as added, modified, or removed, applying include/exclude filters.
func (s *Sync) diffCommits(r *git.Repository, oldHash, newHash plumbing.Hash, repo *Repository) (ChangeSet, error) {
	oldCommit, err := r.CommitObject(oldHash)
	if err != nil {
		return ChangeSet{}, err
	}
	newCommit, err := r.CommitObject(newHash)
	if err != nil {
		return ChangeSet{}, err
	}
	oldTree, err := oldCommit.Tree()
	if err != nil {
		return ChangeSet{}, err
	}
	newTree, err := newCommit.Tree()
	if err != nil {
		return ChangeSet{}, err
	}

	changes, err := oldTree.Diff(newTree)
	if err != nil {
		return ChangeSet{}, err
	}

	var result ChangeSet
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			continue
		}
		name := changeName(change)
		if !matchesFilters(name, repo.Paths, repo.Exclude) {
			continue
		}
		if isChangeBinary(change) {
			continue
		}
		switch action.String() {
		case "Insert":
			result.Added = append(result.Added, name)
		case "Modify":
			result.Modified = append(result.Modified, name)
		case "Delete":
			result.Removed = append(result.Removed, name)
		}
	}
	return result, nil
}

func changeName(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}

func isChangeBinary(change *object.Change) bool {
	from, to, err := change.Files()
	if err != nil {
		return false
	}
	f := to
	if f == nil {
		f = from
	}
	if f == nil {
		return false
	}
	isBinary, err := f.IsBinary()
	return err == nil && isBinary
}

// matchesFilters reports whether path should be processed: it matches at
// least one include glob (or no include globs are configured) and none of
// the exclude globs.
func matchesFilters(path string, includes, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}
	if len(includes) == 0 {
		return true
	}
	for _, pattern := range includes {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// ReadFile returns the current working-tree content of path, skipping
// binary files via content sniff.
func (s *Sync) ReadFile(name string, path string) ([]byte, error) {
	s.mu.RLock()
	_, ok := s.repos[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRepositoryNotFound
	}

	full := filepath.Join(s.repoDir(name), filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	contentType := nethttp.DetectContentType(data[:sniffLen])
	if !isTextLikeContentType(contentType) {
		return nil, fmt.Errorf("gitsync: %s is binary (%s)", path, contentType)
	}
	return data, nil
}

func isTextLikeContentType(contentType string) bool {
	for _, prefix := range []string{"text/", "application/json", "application/xml", "application/x-yaml"} {
		if len(contentType) >= len(prefix) && contentType[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func (s *Sync) DeleteRepository(name string) error {
	_ = s.StopScheduledSync(name)

	s.mu.Lock()
	if _, ok := s.repos[name]; !ok {
		s.mu.Unlock()
		return ErrRepositoryNotFound
	}
	delete(s.repos, name)
	s.mu.Unlock()

	return os.RemoveAll(s.repoDir(name))
}

func (s *Sync) Close() error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	for name, cancel := range s.schedules {
		cancel()
		delete(s.schedules, name)
	}
	return nil
}

func (s *Sync) authMethod(repo Repository) (transport.AuthMethod, error) {
	switch repo.Auth {
	case AuthNone, "":
		return nil, nil
	case AuthToken:
		if repo.Token == "" {
			return nil, fmt.Errorf("token auth configured but no token set for %s", repo.Name)
		}
		return &githttp.BasicAuth{Username: "x-access-token", Password: repo.Token}, nil
	case AuthSSH:
		if repo.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth configured but no key path set for %s", repo.Name)
		}
		keyBytes, err := os.ReadFile(repo.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		return &gossh.PublicKeys{User: "git", Signer: signer}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", repo.Auth)
	}
}

// classifyGitError marks auth failures as permanent so the caller halts the
// repository's schedule instead of retrying indefinitely.
func classifyGitError(repoName string, err error) error {
	msg := strings.ToLower(err.Error())
	permanent := strings.Contains(msg, "authentication") || strings.Contains(msg, "authorization")
	return &SyncError{Repository: repoName, Err: err, Permanent: permanent}
}
