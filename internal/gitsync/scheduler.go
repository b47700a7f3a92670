package gitsync

import (
	"context"
	"time"
)

// StartScheduledSync installs a periodic sync task for name at its
// configured SyncInterval. A zero interval is a no-op. Transient failures
// are swallowed by the scheduled loop (they're already recorded on the
// repository's Status by SyncRepository); a permanent auth failure halts
// the schedule.
func (s *Sync) StartScheduledSync(name string) error {
	s.mu.RLock()
	repo, ok := s.repos[name]
	s.mu.RUnlock()
	if !ok {
		return ErrRepositoryNotFound
	}
	if repo.SyncInterval <= 0 {
		return nil
	}

	s.schedMu.Lock()
	if _, exists := s.schedules[name]; exists {
		s.schedMu.Unlock()
		return nil // already scheduled
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.schedules[name] = cancel
	s.schedMu.Unlock()

	go s.runSchedule(ctx, name, repo.SyncInterval)
	return nil
}

func (s *Sync) runSchedule(ctx context.Context, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.SyncRepository(ctx, name)
			if err != nil {
				var syncErr *SyncError
				if asSyncError(err, &syncErr) && syncErr.Permanent {
					s.schedMu.Lock()
					if cancel, ok := s.schedules[name]; ok {
						cancel()
						delete(s.schedules, name)
					}
					s.schedMu.Unlock()
					return
				}
			}
		}
	}
}

// StopScheduledSync cancels the periodic task for name, if any.
func (s *Sync) StopScheduledSync(name string) error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	cancel, ok := s.schedules[name]
	if !ok {
		return nil
	}
	cancel()
	delete(s.schedules, name)
	return nil
}
