package employeehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/domain/employee"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service *employee.Service
	Audit   *audit.Service
}

func NewHandler(service *employee.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)).Get("/", h.handleList)
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)).Post("/", h.handleCreate)
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)).Get("/stats", h.handleStats)
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)).Get("/next-id", h.handleNextID)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)).Put("/", h.handleUpdate)
			r.With(middleware.RequireRoles(auth.RoleAdmin)).Delete("/", h.handleDelete)
			r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)).Put("/salary", h.handleUpdateSalary)
			r.With(middleware.RequireRoles(auth.RoleAdmin)).Put("/password", h.handleAssignPassword)
		})
	})
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,password"`
}

func fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employee.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "employee_exists", "employee id or email already exists", reqID)
	case errors.Is(err, employee.ErrSelfDelete):
		api.Fail(w, http.StatusBadRequest, "self_delete", "cannot delete your own account", reqID)
	case errors.Is(err, employee.ErrOwnRole):
		api.Fail(w, http.StatusBadRequest, "self_update", "cannot change your own role", reqID)
	case errors.Is(err, employee.ErrAdminOnly):
		api.Fail(w, http.StatusForbidden, "forbidden", "only an admin can change this account", reqID)
	case errors.Is(err, employee.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	default:
		slog.Error("employee request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "employee_failed", "request failed", reqID)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	q := r.URL.Query()
	filter := employee.Filter{
		Department: strings.TrimSpace(q.Get("department")),
		Role:       strings.TrimSpace(q.Get("role")),
		Status:     strings.TrimSpace(q.Get("status")),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	v := shared.NewValidator()
	v.Enum("role", filter.Role, auth.Roles, "must be a valid role")
	v.Enum("status", filter.Status, employee.EmploymentStatuses, "must be a valid employment status")
	switch q.Get("isActive") {
	case "":
	case "true":
		active := true
		filter.IsActive = &active
	case "false":
		active := false
		filter.IsActive = &active
	default:
		v.Add("isActive", "must be true or false")
	}
	if v.Reject(w, reqID) {
		return
	}

	page := shared.ParsePagination(r, 10, 100)
	items, total, err := h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Paginated(w, items, page.Meta(total), reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "employeeID")
	if !auth.CanAccessOwned(user, id, true) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	emp, err := h.Service.Get(r.Context(), user, id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload employee.CreateInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if payload.JoinDate != "" {
		v.Date("joinDate", payload.JoinDate)
	}
	if payload.Role == auth.RoleAdmin && user.Role != auth.RoleAdmin {
		v.Add("role", "only an admin can create admin accounts")
	}
	if v.Reject(w, reqID) {
		return
	}

	emp, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "employee.create", "employee", emp.ID, reqID, shared.ClientIP(r), nil, emp); err != nil {
		slog.Warn("audit employee.create failed", "err", err)
	}
	api.Created(w, emp, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload employee.UpdateInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if payload.JoinDate != nil && *payload.JoinDate != "" {
		v.Date("joinDate", *payload.JoinDate)
	}
	if payload.Role != nil && user.Role != auth.RoleAdmin {
		v.Add("role", "only an admin can change roles")
	}
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "employeeID")
	before, err := h.Service.Get(r.Context(), user, id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	emp, err := h.Service.Update(r.Context(), user, id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "employee.update", "employee", id, reqID, shared.ClientIP(r), before, emp); err != nil {
		slog.Warn("audit employee.update failed", "err", err)
	}
	api.SuccessMessage(w, emp, "employee updated", reqID)
}

func (h *Handler) handleUpdateSalary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload employee.SalaryUpdate
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "employeeID")
	emp, err := h.Service.UpdateSalary(r.Context(), id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "employee.salary.update", "employee", id, reqID, shared.ClientIP(r), nil, emp.Compensation); err != nil {
		slog.Warn("audit employee.salary.update failed", "err", err)
	}
	api.SuccessMessage(w, emp, "salary details updated", reqID)
}

func (h *Handler) handleAssignPassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload passwordRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "employeeID")
	if err := h.Service.AssignPassword(r.Context(), id, payload.Password); err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "employee.password.assign", "employee", id, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit employee.password.assign failed", "err", err)
	}
	api.SuccessMessage(w, map[string]bool{"isPasswordSet": true}, "password assigned", reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "employeeID")
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "employee.delete", "employee", id, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit employee.delete failed", "err", err)
	}
	api.SuccessMessage(w, nil, "employee deleted", reqID)
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

func (h *Handler) handleNextID(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	next, err := h.Service.NextEmployeeID(r.Context())
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"employeeId": next}, reqID)
}
