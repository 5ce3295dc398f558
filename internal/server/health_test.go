package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) Count(context.Context) (int, error) { return f.n, f.err }

func TestNewHealthServer_Defaults(t *testing.T) {
	s := NewHealthServer(nil)
	if s.ready {
		t.Fatal("expected not ready initially")
	}
	if !s.live {
		t.Fatal("expected live initially")
	}
	if s.checkTimeout != 5*time.Second {
		t.Fatalf("expected 5s check timeout, got %v", s.checkTimeout)
	}
}

func TestNewHealthServer_WithConfig(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "1.0.0", CheckTimeout: time.Second})
	if s.version != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", s.version)
	}
	if s.checkTimeout != time.Second {
		t.Fatalf("expected 1s check timeout, got %v", s.checkTimeout)
	}
}

func TestHealthServer_HandleHealth(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "1.0.0"})
	s.RegisterCheck("index", IndexHealthChecker("memory", fakeCounter{n: 3}))
	s.RegisterCheck("classifier", ProviderHealthChecker("ollama", nil))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", resp.Version)
	}
	if len(resp.Checks) != 2 || resp.Checks[0].Name != "classifier" || resp.Checks[1].Name != "index" {
		t.Fatalf("expected checks sorted by name, got %+v", resp.Checks)
	}
	if resp.Checks[1].Details["entries"] != "3" {
		t.Fatalf("expected entry count in details, got %v", resp.Checks[1].Details)
	}
}

func TestHealthServer_UnhealthyIndex(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("index", IndexHealthChecker("sqlite", fakeCounter{err: errors.New("database is locked")}))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHealthServer_DegradedStillOK(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("index", IndexHealthChecker("memory", fakeCounter{}))
	s.RegisterCheck("classifier", ProviderHealthChecker("ollama", func(context.Context) error {
		return errors.New("connection refused")
	}))

	resp := s.Run(context.Background())
	if resp.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", resp.Status)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("degraded should still answer 200, got %d", w.Code)
	}
}

func TestHealthServer_RunHonoursTimeout(t *testing.T) {
	s := NewHealthServer(&HealthConfig{CheckTimeout: 20 * time.Millisecond})
	s.RegisterCheck("slow", func(ctx context.Context) HealthCheck {
		<-ctx.Done()
		return HealthCheck{Status: HealthStatusUnhealthy, Message: ctx.Err().Error()}
	})

	start := time.Now()
	resp := s.Run(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check timeout was not applied")
	}
	if resp.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", resp.Status)
	}
}

func TestHealthServer_ReadyAndLive(t *testing.T) {
	s := NewHealthServer(nil)
	h := s.Handler()

	tests := []struct {
		name  string
		path  string
		setup func()
		want  int
	}{
		{"not ready", "/ready", func() {}, http.StatusServiceUnavailable},
		{"ready", "/readyz", func() { s.SetReady(true) }, http.StatusOK},
		{"live", "/live", func() {}, http.StatusOK},
		{"not live", "/livez", func() { s.SetLive(false) }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Fatalf("%s: expected %d, got %d", tt.path, tt.want, w.Code)
			}
		})
	}
}

func TestHealthServer_RegisterOnMux(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthServer(nil).Register(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", w.Code)
	}
}

func TestProviderHealthChecker_OK(t *testing.T) {
	check := ProviderHealthChecker("openai", func(context.Context) error { return nil })(context.Background())
	if check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}
	if check.Details["provider"] != "openai" {
		t.Fatalf("expected provider detail, got %v", check.Details)
	}
}
