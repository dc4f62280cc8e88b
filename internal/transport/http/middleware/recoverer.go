package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"workpulse/internal/transport/http/api"
)

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			reqID := GetRequestID(r.Context())
			slog.Error("panic recovered", "panic", rec, "requestId", reqID, "stack", string(debug.Stack()))
			api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
		}()
		next.ServeHTTP(w, r)
	})
}
