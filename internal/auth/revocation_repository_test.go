package auth

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteRevocationRepository(t *testing.T) {
	repo := NewRevocationRepository(testDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Revoke(ctx, "expired", now.Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke(expired) error = %v", err)
	}
	if err := repo.Revoke(ctx, "active", now.Add(time.Minute)); err != nil {
		t.Fatalf("Revoke(active) error = %v", err)
	}

	t.Run("revoke is idempotent and keeps later expiry", func(t *testing.T) {
		if err := repo.Revoke(ctx, "active", now.Add(-time.Hour)); err != nil {
			t.Fatalf("repeat Revoke() error = %v", err)
		}
		active, err := repo.ListActive(ctx, now)
		if err != nil {
			t.Fatalf("ListActive() error = %v", err)
		}
		if len(active) != 1 || active[0].JTI != "active" {
			t.Fatalf("ListActive() = %+v, want only \"active\"", active)
		}
		if !active[0].ExpiresAt.Equal(now.Add(time.Minute)) {
			t.Errorf("ExpiresAt = %v, want %v", active[0].ExpiresAt, now.Add(time.Minute))
		}
		if active[0].RevokedAt.IsZero() {
			t.Error("RevokedAt should be set")
		}
	})

	t.Run("delete expired", func(t *testing.T) {
		n, err := repo.DeleteExpired(ctx, now)
		if err != nil {
			t.Fatalf("DeleteExpired() error = %v", err)
		}
		if n != 1 {
			t.Errorf("DeleteExpired() = %d, want 1", n)
		}

		n, err = repo.DeleteExpired(ctx, now)
		if err != nil || n != 0 {
			t.Errorf("second DeleteExpired() = %d, %v; want 0, nil", n, err)
		}
	})
}
