package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stitchfield/stitchfield-backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "stitchfield-test", ExpirationMinutes: 60},
	}
}

func TestRouterHealthLive(t *testing.T) {
	handler := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Stitchfield-Env"); got != "dev" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	handler := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/orders/sess_1"},
		{http.MethodGet, "/api/v1/returns"},
		{http.MethodPost, "/api/v1/returns"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
