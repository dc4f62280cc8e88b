package middleware

import (
	"net/http"

	"workpulse/internal/domain/auth"
	"workpulse/internal/transport/http/api"
)

// Require runs guards in order against the authenticated user and writes the
// first denial.
func Require(guards ...auth.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if d := auth.Evaluate(user, append([]auth.Guard{auth.RequireActiveSession()}, guards...)...); !d.Allowed {
				api.Fail(w, d.Status, d.Code, d.Reason, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return Require(auth.RequireRoles(roles...))
}
