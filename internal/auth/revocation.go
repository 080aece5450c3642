package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RevocationList is the in-process denylist of logged-out token IDs.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A Contains that starts after
//     Add returns always observes the entry.
type RevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	repo    RevocationRepository
	logger  *slog.Logger
}

// NewRevocationList creates an empty list. repo may be nil for an
// in-memory-only list.
func NewRevocationList(repo RevocationRepository, logger *slog.Logger) *RevocationList {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevocationList{
		entries: make(map[string]time.Time),
		repo:    repo,
		logger:  logger,
	}
}

// Add revokes jti until expiresAt. When a repository is configured the entry
// is persisted first; the in-memory set is only updated on success. Adding an
// existing jti keeps the later expiry.
func (l *RevocationList) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("%w: empty token id", ErrTokenInvalid)
	}

	if l.repo != nil {
		if err := l.repo.Revoke(ctx, jti, expiresAt); err != nil {
			return fmt.Errorf("persisting revocation: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.entries[jti]; !ok || expiresAt.After(existing) {
		l.entries[jti] = expiresAt
	}
	return nil
}

// Contains reports whether jti has been revoked.
func (l *RevocationList) Contains(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[jti]
	return ok
}

// Len returns the number of entries currently held in memory.
func (l *RevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Prune drops entries whose token has expired by now and returns how many
// were removed. An expired token is rejected on expiry alone, so dropping
// its entry cannot resurrect it.
func (l *RevocationList) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for jti, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, jti)
			removed++
		}
	}
	return removed
}

// Load restores unexpired entries from the repository. It is a no-op for
// an in-memory-only list.
func (l *RevocationList) Load(ctx context.Context, now time.Time) (int, error) {
	if l.repo == nil {
		return 0, nil
	}

	active, err := l.repo.ListActive(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("loading revocations: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range active {
		l.entries[r.JTI] = r.ExpiresAt
	}
	return len(active), nil
}

// Run prunes memory and the repository every interval until ctx is done.
func (l *RevocationList) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.pruneOnce(ctx, now)
		}
	}
}

func (l *RevocationList) pruneOnce(ctx context.Context, now time.Time) {
	removed := l.Prune(now)

	var deleted int64
	if l.repo != nil {
		n, err := l.repo.DeleteExpired(ctx, now)
		if err != nil {
			l.logger.Warn("pruning persisted revocations failed", "error", err)
		}
		deleted = n
	}

	if removed > 0 || deleted > 0 {
		l.logger.Debug("revocations pruned", "memory", removed, "persisted", deleted)
	}
}
