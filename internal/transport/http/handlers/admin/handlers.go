package adminhandler

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/admin"
	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service *admin.Service
	Audit   *audit.Service
}

func NewHandler(service *admin.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)).Get("/stats", h.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(auth.RoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Put("/users/{userID}/activate", h.handleActivate)
			r.Put("/users/{userID}/deactivate", h.handleDeactivate)
			r.Put("/users/{userID}/role", h.handleChangeRole)
			r.Get("/audit-events", h.handleListEvents)
			r.Get("/audit-events/export", h.handleExportEvents)
			r.Get("/metrics", h.handleMetrics)
		})
	})
}

func fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, admin.ErrUserNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
	case errors.Is(err, admin.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", err.Error(), reqID)
	case errors.Is(err, admin.ErrOwnRole), errors.Is(err, admin.ErrSelfDeactivate):
		api.Fail(w, http.StatusBadRequest, "self_update", err.Error(), reqID)
	default:
		slog.Error("admin request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "admin_failed", "request failed", reqID)
	}
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	filter := admin.UserFilter{Role: strings.TrimSpace(q.Get("role")), Search: q.Get("search")}
	v := shared.NewValidator()
	v.Enum("role", filter.Role, auth.Roles, "must be admin, hr, manager or employee")
	if raw := q.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			v.Add("isActive", "must be true or false")
		}
		filter.IsActive = &active
	}
	if v.Reject(w, reqID) {
		return
	}

	page := shared.ParsePagination(r, 10, 100)
	users, total, err := h.Service.ListUsers(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Paginated(w, users, page.Meta(total), reqID)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "userID")
	var (
		updated admin.User
		err     error
	)
	action, message := "user.activate", "user activated"
	if active {
		updated, err = h.Service.Activate(r.Context(), id)
	} else {
		action, message = "user.deactivate", "user deactivated"
		updated, err = h.Service.Deactivate(r.Context(), user, id)
	}
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, "user", id, reqID, shared.ClientIP(r),
		map[string]bool{"isActive": !active}, map[string]bool{"isActive": active}); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
	api.SuccessMessage(w, updated, message, reqID)
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload admin.RoleInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "userID")
	updated, err := h.Service.ChangeRole(r.Context(), user, id, payload.Role)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "user.role", "user", id, reqID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit user.role failed", "err", err)
	}
	api.SuccessMessage(w, updated, "role updated", reqID)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, stats, reqID)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Service.MetricsSnapshot(), middleware.GetRequestID(r.Context()))
}

func auditFilter(w http.ResponseWriter, r *http.Request, reqID string) (audit.Filter, bool) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     strings.TrimSpace(q.Get("action")),
		EntityType: strings.TrimSpace(q.Get("entityType")),
		ActorUser:  strings.TrimSpace(q.Get("actorUserId")),
	}
	start, end, err := shared.DateRange(r)
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "startDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return audit.Filter{}, false
	}
	filter.From = start
	if !end.IsZero() {
		filter.To = end.AddDate(0, 0, 1)
	}
	return filter, true
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := auditFilter(w, r, reqID)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 500)
	total, err := h.Audit.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	events, err := h.Audit.List(r.Context(), filter, r.URL.Query().Get("includeDetails") == "true", page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}
	api.Paginated(w, events, page.Meta(total), reqID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := auditFilter(w, r, reqID)
	if !ok {
		return
	}
	events, err := h.Audit.List(r.Context(), filter, false, 0, 0)
	if err != nil {
		slog.Error("audit export failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", reqID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		if err := writer.Write([]string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
