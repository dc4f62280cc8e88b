package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workpulse/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func signInRequest(path, email, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"email":"`+email+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	return req
}

func TestPrivilegedRoutesKeyedByUser(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())
	userCtx := WithUser(context.Background(), auth.UserContext{UserID: "hr-1", Role: auth.RoleHR})

	for i, addr := range []string{"198.51.100.11:1", "198.51.100.12:2", "198.51.100.13:3"} {
		req := httptest.NewRequest(http.MethodPut, "/api/salaries/s1/approve", nil).WithContext(userCtx)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		want := http.StatusNoContent
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d from %s: expected %d, got %d", i+1, addr, want, rec.Code)
		}
	}
}

func TestSignInRoutesKeyedByIPAndEmail(t *testing.T) {
	tests := []struct {
		name   string
		first  *http.Request
		second *http.Request
	}{
		{
			"same address, different emails",
			signInRequest("/api/auth/request-reset", "a@example.com", "203.0.113.10:4444"),
			signInRequest("/api/auth/request-reset", "b@example.com", "203.0.113.10:5555"),
		},
		{
			"same email, different addresses",
			signInRequest("/api/auth/login", "Nurse@Example.com", "203.0.113.20:1"),
			signInRequest("/api/auth/login", "nurse@example.com", "203.0.113.21:2"),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())
			first := httptest.NewRecorder()
			limited.ServeHTTP(first, tc.first)
			if first.Code != http.StatusNoContent {
				t.Fatalf("expected first request to pass, got %d", first.Code)
			}
			second := httptest.NewRecorder()
			limited.ServeHTTP(second, tc.second)
			if second.Code != http.StatusTooManyRequests {
				t.Fatalf("expected second request to be throttled, got %d", second.Code)
			}
			if second.Header().Get("Retry-After") == "" || second.Header().Get("X-RateLimit-Reset") == "" {
				t.Fatal("expected retry metadata")
			}
		})
	}
}

func TestSignInBodyReachesHandler(t *testing.T) {
	var got string
	limited := SensitiveMutationRateLimit(4, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got = string(raw)
		w.WriteHeader(http.StatusNoContent)
	}))
	limited.ServeHTTP(httptest.NewRecorder(), signInRequest("/api/auth/login", "a@example.com", "192.0.2.1:1"))
	if got != `{"email":"a@example.com"}` {
		t.Fatalf("expected body to be preserved, got %q", got)
	}
}

func TestRateWindowResets(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, 40*time.Millisecond)(noContent())
	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, signInRequest("/api/auth/login", "a@example.com", "192.0.2.20:1111"))
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}

	time.Sleep(50 * time.Millisecond)

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, signInRequest("/api/auth/login", "a@example.com", "192.0.2.20:1111"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected request after window reset to pass, got %d", rec.Code)
	}
}

func TestReadsAreNotLimited(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/attendance/stats", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("read %d: expected pass, got %d", i+1, rec.Code)
		}
	}
}

func TestLimiterSweepsExpiredWindows(t *testing.T) {
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	l := newLimiter(1, time.Minute, ipKey)
	l.now = func() time.Time { return now }

	l.allow("ip:a")
	l.allow("ip:b")
	now = now.Add(2 * time.Minute)
	if ok, _, _ := l.allow("ip:c"); !ok {
		t.Fatal("expected fresh key to pass")
	}
	if len(l.windows) != 1 {
		t.Fatalf("expected expired windows to be dropped, got %d", len(l.windows))
	}
}

func TestRouteScope(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   rateScope
	}{
		{http.MethodPost, "/api/auth/login", scopeSignIn},
		{http.MethodPost, "/api/auth/register", scopeSignIn},
		{http.MethodPut, "/api/auth/password", scopeSignIn},
		{http.MethodGet, "/api/auth/login", scopeUnlimited},
		{http.MethodPost, "/api/auth/logout", scopeUnlimited},
		{http.MethodPost, "/api/salaries", scopePrivileged},
		{http.MethodPost, "/api/salaries/calculate", scopeUnlimited},
		{http.MethodPut, "/api/salaries/s1/pay", scopePrivileged},
		{http.MethodPut, "/api/leaves/l1/approve", scopePrivileged},
		{http.MethodPost, "/api/leaves/balances/initialize", scopePrivileged},
		{http.MethodPost, "/api/schedules/recurring", scopePrivileged},
		{http.MethodPut, "/api/employees/e1/password", scopePrivileged},
		{http.MethodPut, "/api/admin/users/u1/deactivate", scopePrivileged},
		{http.MethodPost, "/api/attendance/clock-in", scopeUnlimited},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := routeScope(req); got != tc.want {
			t.Fatalf("%s %s: got %d, want %d", tc.method, tc.path, got, tc.want)
		}
	}
}
