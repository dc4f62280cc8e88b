package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workpulse/internal/platform/config"
	"workpulse/internal/platform/metrics"
)

func routerConfig() config.Config {
	return config.Config{
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		Environment:        "test",
		AllowedOrigins:     []string{"http://localhost:5173"},
		MaxBodyBytes:       1024,
		RateLimitPerMinute: 60,
		WorkdayStart:       "08:30",
		Timezone:           "UTC",
	}
}

func TestRouterWithoutDatabase(t *testing.T) {
	router, err := NewRouter(routerConfig(), nil, metrics.New())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"liveness", http.MethodGet, "/healthz", "", http.StatusOK},
		{"readiness without db", http.MethodGet, "/readyz", "", http.StatusServiceUnavailable},
		{"employees need a token", http.MethodGet, "/api/employees", "", http.StatusUnauthorized},
		{"salaries need a token", http.MethodPost, "/api/salaries", "{}", http.StatusUnauthorized},
		{"signup disabled", http.MethodPost, "/api/auth/register", "{}", http.StatusForbidden},
		{"unknown api route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"oversized body", http.MethodPost, "/api/auth/login", `{"email":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Fatal("expected request id and security headers")
			}
		})
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router, err := NewRouter(routerConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	req := httptest.NewRequest(http.MethodOptions, "/api/salaries", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}

func TestRouterRejectsBadEncryptionKey(t *testing.T) {
	cfg := routerConfig()
	cfg.DataEncryptionKey = "short"
	if _, err := NewRouter(cfg, nil, nil); err == nil {
		t.Fatal("expected invalid key to fail")
	}
}
