package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// scrape returns the text exposition served by m.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("reading scrape body: %v", err)
	}
	return string(body)
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("exposition missing %q", w)
		}
	}
}

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusOK, 12*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusOK, 8*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, time.Millisecond)

	assertContains(t, scrape(t, m),
		`inbotiq_http_requests_total{method="POST",route="/api/auth/login",status="200"} 2`,
		`inbotiq_http_requests_total{method="POST",route="/api/auth/login",status="401"} 1`,
		`inbotiq_http_request_duration_seconds_count{method="POST",route="/api/auth/login"} 3`,
	)
}

func TestRecordAuthEvent(t *testing.T) {
	m := New()
	m.RecordAuthEvent("login_failed", "bad_password")
	m.RecordAuthEvent("login_failed", "bad_password")

	assertContains(t, scrape(t, m),
		`inbotiq_auth_events_total{reason="bad_password",type="login_failed"} 2`,
	)
}

func TestRegisterGauge(t *testing.T) {
	m := New()
	if err := m.RegisterGauge("revoked_tokens", "Revoked tokens held in memory", func() float64 { return 7 }); err != nil {
		t.Fatalf("RegisterGauge() error = %v", err)
	}
	if err := m.RegisterGauge("revoked_tokens", "duplicate", func() float64 { return 0 }); err == nil {
		t.Error("registering the same gauge twice should fail")
	}

	assertContains(t, scrape(t, m), "inbotiq_revoked_tokens 7")
}

func TestHandler_IncludesRuntimeCollectors(t *testing.T) {
	m := New()
	m.CORSRejected.Inc()

	assertContains(t, scrape(t, m), "inbotiq_cors_rejected_total 1", "go_goroutines")
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.BindAttempts.Inc()

	assertContains(t, scrape(t, b), "inbotiq_listener_bind_attempts_total 0")
	if m := a.Registry(); m == b.Registry() {
		t.Error("New() returned a shared registry")
	}
}
