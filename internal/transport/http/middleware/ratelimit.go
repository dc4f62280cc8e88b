package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/shared"
)

const maxEmailPeek = 16 * 1024

type rateScope int

const (
	scopeUnlimited rateScope = iota
	scopeSignIn
	scopePrivileged
)

// signInRoutes are public or credential-changing routes, limited per client
// IP and per submitted email.
var signInRoutes = map[string]bool{
	"/auth/login":         true,
	"/auth/register":      true,
	"/auth/request-reset": true,
	"/auth/reset":         true,
	"/auth/password":      true,
	"/auth/mfa/setup":     true,
	"/auth/mfa/enable":    true,
	"/auth/mfa/disable":   true,
}

// privilegedRoute matches payroll, approval and account-administration
// mutations, limited per signed-in user.
type privilegedRoute struct {
	prefix string
	suffix string
}

var privilegedRoutes = []privilegedRoute{
	{prefix: "/salaries", suffix: "/salaries"},
	{prefix: "/salaries/", suffix: "/approve"},
	{prefix: "/salaries/", suffix: "/pay"},
	{prefix: "/leaves/", suffix: "/approve"},
	{prefix: "/leaves/", suffix: "/reject"},
	{prefix: "/leaves/balances/initialize", suffix: "/initialize"},
	{prefix: "/schedules/recurring", suffix: "/recurring"},
	{prefix: "/employees/", suffix: "/password"},
	{prefix: "/admin/users/"},
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

type limiter struct {
	mu        sync.Mutex
	limit     int
	period    time.Duration
	key       func(*http.Request) string
	windows   map[string]*rateWindow
	nextSweep time.Time
	now       func() time.Time
}

func newLimiter(limit int, period time.Duration, key func(*http.Request) string) *limiter {
	return &limiter{
		limit:   limit,
		period:  period,
		key:     key,
		windows: map[string]*rateWindow{},
		now:     time.Now,
	}
}

// SensitiveMutationRateLimit throttles sign-in routes to a quarter of limit
// and privileged mutations to half of it, per period. Reads pass untouched.
func SensitiveMutationRateLimit(limit int, period time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	signInLimit := max(limit/4, 1)
	byIP := newLimiter(signInLimit, period, ipKey)
	byEmail := newLimiter(signInLimit, period, emailKey)
	byUser := newLimiter(max(limit/2, 1), period, userKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch routeScope(r) {
			case scopeSignIn:
				if !byIP.enforce(w, r) || !byEmail.enforce(w, r) {
					return
				}
			case scopePrivileged:
				if !byUser.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func routeScope(r *http.Request) rateScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return scopeUnlimited
	}
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if signInRoutes[path] {
		return scopeSignIn
	}
	for _, route := range privilegedRoutes {
		if strings.HasPrefix(path, route.prefix) && strings.HasSuffix(path, route.suffix) {
			return scopePrivileged
		}
	}
	return scopeUnlimited
}

// allow counts r against its key. It returns whether r is within the limit,
// the quota left and the seconds until the window resets.
func (l *limiter) allow(key string) (bool, int, int) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		for k, win := range l.windows {
			if now.After(win.resetAt) {
				delete(l.windows, k)
			}
		}
		l.nextSweep = now.Add(l.period)
	}
	win, ok := l.windows[key]
	if !ok || now.After(win.resetAt) {
		win = &rateWindow{resetAt: now.Add(l.period)}
		l.windows[key] = win
	}
	win.count++
	resetIn := int(math.Ceil(win.resetAt.Sub(now).Seconds()))
	return win.count <= l.limit, max(l.limit-win.count, 0), max(resetIn, 0)
}

func (l *limiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	key := l.key(r)
	ok, remaining, resetIn := l.allow(key)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if ok {
		return true
	}
	h.Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", l.limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ipKey(r *http.Request) string {
	return "ip:" + shared.ClientIP(r)
}

func userKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return ipKey(r)
}

// emailKey keys sign-in attempts by the submitted email so one account
// cannot be targeted from many addresses. The body is restored for the
// handler.
func emailKey(r *http.Request) string {
	if r.Body == nil {
		return ipKey(r)
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxEmailPeek))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil {
		return ipKey(r)
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &payload) != nil {
		return ipKey(r)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ipKey(r)
	}
	return "email:" + email
}
