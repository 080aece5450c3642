package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeConfig writes a minimal config that keeps hashing cheap and optional
// sinks disabled.
func writeConfig(t *testing.T, dsn string, port int) string {
	t.Helper()

	content := fmt.Sprintf(`
api:
  host: "127.0.0.1"
  port: %d
  max_bind_attempts: 5

database:
  dsn: %q

security:
  password:
    iterations: 1
    memory_kib: 1024
    threads: 1

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr
`, port, dsn)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// freePort asks the kernel for an unused port and releases it.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want config load failure", err)
	}
}

// TestRun_MissingSecret verifies run refuses to start without a signing secret.
func TestRun_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("INBOTIQ_JWT_SECRET", "")

	path := writeConfig(t, filepath.Join(t.TempDir(), "auth.db"), freePort(t))

	err := run(context.Background(), path)
	if err == nil {
		t.Fatal("run() should fail without security.jwt.secret")
	}
	if !strings.Contains(err.Error(), "jwt.secret") {
		t.Errorf("run() error = %v, want missing secret", err)
	}
}

// TestRun_StoreFailureIsFatal verifies a store that cannot be opened stops
// startup before anything binds.
func TestRun_StoreFailureIsFatal(t *testing.T) {
	t.Setenv("INBOTIQ_JWT_SECRET", testSecret)

	// A regular file where a directory is expected cannot hold the database.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}
	port := freePort(t)
	path := writeConfig(t, filepath.Join(blocker, "auth.db"), port)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil {
		t.Fatal("run() should fail when the store cannot be opened")
	}
	if !strings.Contains(err.Error(), "database") {
		t.Errorf("run() error = %v, want database failure", err)
	}

	conn, dialErr := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if dialErr == nil {
		conn.Close()
		t.Error("API port is accepting connections after a fatal store failure")
	}
}

// TestRun_StartAndShutdown boots the full service, probes the health
// endpoint, then cancels the context and expects a clean exit.
func TestRun_StartAndShutdown(t *testing.T) {
	t.Setenv("INBOTIQ_JWT_SECRET", testSecret)

	port := freePort(t)
	path := writeConfig(t, filepath.Join(t.TempDir(), "auth.db"), port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, path) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", port)
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(url) //nolint:noctx // test probe
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("GET /api/health status = %d, want 200", resp.StatusCode)
			}
			break
		}
		select {
		case runErr := <-errCh:
			t.Fatalf("run() exited before serving: %v", runErr)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v, want nil on shutdown", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("INBOTIQ_JWT_SECRET", testSecret)

	dsn := filepath.Join(t.TempDir(), "auth.db")
	path := writeConfig(t, dsn, freePort(t))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", path})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if _, err := os.Stat(dsn); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "inbotiq "+version) {
		t.Errorf("version output = %q", out.String())
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("INBOTIQ_CONFIG", "/from/env.yaml")
		if got := resolveConfigPath("/from/flag.yaml"); got != "/from/flag.yaml" {
			t.Errorf("resolveConfigPath() = %q, want flag value", got)
		}
	})

	t.Run("env over default", func(t *testing.T) {
		t.Setenv("INBOTIQ_CONFIG", "/from/env.yaml")
		if got := resolveConfigPath(""); got != "/from/env.yaml" {
			t.Errorf("resolveConfigPath() = %q, want env value", got)
		}
	})

	t.Run("environment only", func(t *testing.T) {
		t.Setenv("INBOTIQ_CONFIG", "")
		t.Chdir(t.TempDir())
		if got := resolveConfigPath(""); got != "" {
			t.Errorf("resolveConfigPath() = %q, want empty without a default file", got)
		}
	})

	t.Run("default file", func(t *testing.T) {
		t.Setenv("INBOTIQ_CONFIG", "")
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, defaultConfigPath), []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)
		if got := resolveConfigPath(""); got != defaultConfigPath {
			t.Errorf("resolveConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})
}
