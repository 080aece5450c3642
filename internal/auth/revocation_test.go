package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRevocationList_AddContains(t *testing.T) {
	l := NewRevocationList(nil, discardLogger())
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if l.Contains("jti-1") {
		t.Fatal("empty list reports jti-1 as revoked")
	}
	if err := l.Add(ctx, "jti-1", exp); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !l.Contains("jti-1") {
		t.Error("Contains(jti-1) = false after Add")
	}
	if l.Contains("jti-2") {
		t.Error("Contains(jti-2) = true, never added")
	}

	if err := l.Add(ctx, "jti-1", exp); err != nil {
		t.Errorf("second Add() error = %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestRevocationList_AddEmptyID(t *testing.T) {
	l := NewRevocationList(nil, discardLogger())
	if err := l.Add(context.Background(), "", time.Now()); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Add(\"\") error = %v, want ErrTokenInvalid", err)
	}
}

func TestRevocationList_Prune(t *testing.T) {
	l := NewRevocationList(nil, discardLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for jti, exp := range map[string]time.Time{
		"past":    now.Add(-time.Minute),
		"exactly": now,
		"future":  now.Add(time.Minute),
	} {
		if err := l.Add(ctx, jti, exp); err != nil {
			t.Fatalf("Add(%s) error = %v", jti, err)
		}
	}

	if removed := l.Prune(now); removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
	if l.Contains("past") {
		t.Error("expired entry survived Prune")
	}
	if !l.Contains("exactly") || !l.Contains("future") {
		t.Error("Prune removed an entry that is not yet past its expiry")
	}
}

func TestRevocationList_AddKeepsLaterExpiry(t *testing.T) {
	l := NewRevocationList(nil, discardLogger())
	ctx := context.Background()
	now := time.Now()

	if err := l.Add(ctx, "jti", now.Add(time.Hour)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := l.Add(ctx, "jti", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	l.Prune(now)
	if !l.Contains("jti") {
		t.Error("earlier expiry overwrote a later one")
	}
}

// Every Contains issued after an Add has returned must observe it.
func TestRevocationList_ConcurrentVisibility(t *testing.T) {
	l := NewRevocationList(nil, discardLogger())
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jti := fmt.Sprintf("jti-%d", i)
			if err := l.Add(ctx, jti, exp); err != nil {
				errs <- err
				return
			}
			if !l.Contains(jti) {
				errs <- fmt.Errorf("%s not visible after Add", jti)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if l.Len() != 64 {
		t.Errorf("Len() = %d, want 64", l.Len())
	}
}

type failingRevocationRepo struct{ err error }

func (f failingRevocationRepo) Revoke(context.Context, string, time.Time) error { return f.err }
func (f failingRevocationRepo) ListActive(context.Context, time.Time) ([]RevokedToken, error) {
	return nil, f.err
}
func (f failingRevocationRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, f.err
}

func TestRevocationList_WriteThroughFailure(t *testing.T) {
	boom := errors.New("disk full")
	l := NewRevocationList(failingRevocationRepo{err: boom}, discardLogger())

	err := l.Add(context.Background(), "jti", time.Now().Add(time.Hour))
	if !errors.Is(err, boom) {
		t.Fatalf("Add() error = %v, want %v", err, boom)
	}
	if l.Contains("jti") {
		t.Error("entry added to memory although persistence failed")
	}

	if _, err := l.Load(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want %v", err, boom)
	}
}

func TestRevocationList_LoadRestoresActive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := NewRevocationList(NewRevocationRepository(db), discardLogger())
	if err := first.Add(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := first.Add(ctx, "stale", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	restarted := NewRevocationList(NewRevocationRepository(db), discardLogger())
	n, err := restarted.Load(ctx, now)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Load() restored %d entries, want 1", n)
	}
	if !restarted.Contains("live") {
		t.Error("unexpired revocation lost across restart")
	}
	if restarted.Contains("stale") {
		t.Error("expired revocation restored")
	}
}

func TestRevocationList_LoadWithoutRepository(t *testing.T) {
	l := NewRevocationList(nil, nil)
	n, err := l.Load(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Errorf("Load() = %d, %v; want 0, nil", n, err)
	}
}

func TestRevocationList_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewRevocationList(nil, discardLogger())
	if err := l.Add(context.Background(), "old", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for l.Contains("old") {
		select {
		case <-deadline:
			t.Fatal("Run() did not prune the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
