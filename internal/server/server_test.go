package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/browniellc/emojitools/pkg/config"
	"github.com/browniellc/emojitools/pkg/health"
)

func serverConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
	}
}

// newTestServer assembles the full route and middleware chain in process.
func newTestServer(t *testing.T, checker *health.Checker) *httptest.Server {
	t.Helper()
	h := New(testEngine(t), nil, nil)
	srv := httptest.NewServer(NewServer(serverConfig(), h, checker, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

// TestRoutes verifies every route is wired with its method and that method
// mismatches 405.
func TestRoutes(t *testing.T) {
	srv := newTestServer(t, health.NewChecker())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/search?q=heart", http.StatusOK},
		{http.MethodGet, "/api/v1/emoji/🔥", http.StatusOK},
		{http.MethodGet, "/api/v1/categories", http.StatusOK},
		{http.MethodGet, "/api/v1/categories/Travel%20&%20Places", http.StatusOK},
		{http.MethodGet, "/api/v1/cache/stats", http.StatusOK},
		{http.MethodPost, "/api/v1/cache/invalidate", http.StatusOK},
		{http.MethodPost, "/api/v1/stats/reset", http.StatusOK},
		{http.MethodPost, "/api/v1/dataset/reload", http.StatusServiceUnavailable},
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodPost, "/api/v1/search?q=heart", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/cache/invalidate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			if err != nil {
				t.Fatalf("building request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// TestRequestIDHeader verifies the middleware chain stamps every response.
func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, health.NewChecker())

	resp, _ := get(t, srv.URL+"/api/v1/categories")
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

// TestCORSHeaders verifies cross-origin requests get the CORS treatment,
// including preflight.
func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, health.NewChecker())

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/search", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin missing from preflight")
	}
}

// TestRateLimitMiddleware verifies a tiny budget trips 429 through the full
// chain.
func TestRateLimitMiddleware(t *testing.T) {
	cfg := serverConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	h := New(testEngine(t), nil, nil)
	srv := httptest.NewServer(NewServer(cfg, h, health.NewChecker(), nil).Handler())
	defer srv.Close()

	var saw429 bool
	for i := 0; i < 5; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/categories")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			saw429 = true
		}
	}
	if !saw429 {
		t.Error("burst of requests never rate limited")
	}
}

// TestAdminKeyGuardsMutatingRoutes verifies a configured admin key gates the
// POST endpoints while read endpoints stay open.
func TestAdminKeyGuardsMutatingRoutes(t *testing.T) {
	cfg := serverConfig()
	cfg.AdminKey = "s3cret"
	h := New(testEngine(t), nil, nil)
	srv := httptest.NewServer(NewServer(cfg, h, health.NewChecker(), nil).Handler())
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/api/v1/search?q=heart")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("search status = %d, want 200 without a key", resp.StatusCode)
	}

	for _, path := range []string{"/api/v1/cache/invalidate", "/api/v1/stats/reset"} {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("POST %s without key = %d, want 401", path, resp.StatusCode)
		}

		req, _ = http.NewRequest(http.MethodPost, srv.URL+path, nil)
		req.Header.Set("X-Admin-Key", "s3cret")
		resp, err = http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s with key: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST %s with key = %d, want 200", path, resp.StatusCode)
		}
	}
}

// TestReadyReportsComponents verifies readiness aggregates registered
// checks and fails when one is down.
func TestReadyReportsComponents(t *testing.T) {
	checker := health.NewChecker()
	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})
	srv := newTestServer(t, checker)

	resp, body := get(t, srv.URL+"/health/ready")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", resp.StatusCode)
	}
	var report struct {
		Status     string                     `json:"status"`
		Components map[string]json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Status != "up" {
		t.Errorf("report status = %q, want up", report.Status)
	}
	if _, ok := report.Components["dataset"]; !ok {
		t.Error("dataset component missing from report")
	}

	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusDown, Message: "empty"}
	})
	resp, _ = get(t, srv.URL+"/health/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d with a down component, want 503", resp.StatusCode)
	}
}
