package auth

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/database"
	_ "github.com/itz-ankit01/inbotiq-core/migrations" // registers embedded schema
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

// fastParams keeps Argon2id cheap in tests.
var fastParams = PasswordParams{Iterations: 1, MemoryKiB: 1024, Threads: 1}

// testDB creates a temporary SQLite database with all migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a settable clock shared by the service and its token signer.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// eventRecorder collects events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Record(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type serviceFixture struct {
	svc     *Service
	db      *sql.DB
	clock   *testClock
	revoked *RevocationList
	events  *eventRecorder
}

// newServiceFixture builds a Service over a fresh SQLite store with a
// persisted revocation list and a one-hour token TTL.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testDB(t)
	clock := newTestClock()
	revoked := NewRevocationList(NewRevocationRepository(db), discardLogger())

	svc, err := NewService(ServiceConfig{
		Secret:   testSecret,
		TokenTTL: time.Hour,
		Password: fastParams,
		Now:      clock.Now,
	}, NewUserRepository(db), revoked, discardLogger())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	events := &eventRecorder{}
	svc.SetEventSink(events)

	return &serviceFixture{svc: svc, db: db, clock: clock, revoked: revoked, events: events}
}

// seedTestUser registers an account through the service.
func (f *serviceFixture) seedTestUser(t *testing.T, email string) *User {
	t.Helper()

	u, err := f.svc.Signup(context.Background(), "Test "+email, email, "secret123")
	if err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return u
}
