package payrollhandler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/domain/payroll"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service     *payroll.Service
	Audit       *audit.Service
	Idempotency middleware.IdempotencyKeys
}

func NewHandler(service *payroll.Service, auditSvc *audit.Service, keys middleware.IdempotencyKeys) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Idempotency: keys}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	payrollStaff := middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)
	adminOnly := middleware.RequireRoles(auth.RoleAdmin)
	r.Route("/salaries", func(r chi.Router) {
		r.With(payrollStaff).Post("/calculate", h.handleCalculate)
		r.With(payrollStaff, middleware.Idempotent(h.Idempotency, "salaries.create")).Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/my", h.handleMine)
		r.With(payrollStaff).Get("/export", h.handleExport)
		r.Get("/{salaryID}", h.handleGet)
		r.Get("/{salaryID}/payslip", h.handlePayslip)
		r.With(payrollStaff).Put("/{salaryID}", h.handleUpdate)
		r.With(adminOnly).Put("/{salaryID}/approve", h.handleApprove)
		r.With(payrollStaff).Put("/{salaryID}/pay", h.handleMarkPaid)
		r.With(adminOnly).Delete("/{salaryID}", h.handleDelete)
	})
}

func fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, payroll.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "salary record not found", reqID)
	case errors.Is(err, payroll.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", err.Error(), reqID)
	case errors.Is(err, payroll.ErrEmployeeInactive):
		api.Fail(w, http.StatusBadRequest, "employee_inactive", err.Error(), reqID)
	case errors.Is(err, payroll.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "salary_exists", err.Error(), reqID)
	case errors.Is(err, payroll.ErrNotPending), errors.Is(err, payroll.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_status", err.Error(), reqID)
	default:
		slog.Error("salary request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "salary_failed", "request failed", reqID)
	}
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, before, after any) {
	reqID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), actorID, action, "salary", entityID, reqID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func decodeCalculation(w http.ResponseWriter, r *http.Request, reqID string) (payroll.CalculateInput, bool) {
	var payload payroll.CalculateInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return payload, false
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return payload, false
	}
	return payload, true
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	payload, ok := decodeCalculation(w, r, reqID)
	if !ok {
		return
	}
	sal, err := h.Service.Calculate(r.Context(), payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, sal, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	payload, ok := decodeCalculation(w, r, reqID)
	if !ok {
		return
	}
	sal, err := h.Service.Create(r.Context(), user.UserID, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "salary.create", sal.ID, nil, sal)
	api.Created(w, sal, reqID)
}

func parseFilter(w http.ResponseWriter, r *http.Request, reqID string) (payroll.Filter, bool) {
	q := r.URL.Query()
	filter := payroll.Filter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		Department: strings.TrimSpace(q.Get("department")),
		Status:     strings.TrimSpace(q.Get("status")),
		Month:      shared.QueryInt(r, "month", 0),
		Year:       shared.QueryInt(r, "year", 0),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, payroll.Statuses, "must be pending, approved or paid")
	if filter.Month < 0 || filter.Month > 12 {
		v.Add("month", "must be between 1 and 12")
	}
	if filter.Year < 0 {
		v.Add("year", "must be a valid year")
	}
	if v.Reject(w, reqID) {
		return payroll.Filter{}, false
	}
	return filter, true
}

// handleList scopes non payroll staff to their own salaries.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	filter, ok := parseFilter(w, r, reqID)
	if !ok {
		return
	}
	if !user.Privileged() {
		filter.EmployeeID = user.UserID
		filter.Department = ""
	}
	h.list(w, r, filter, reqID)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	filter, ok := parseFilter(w, r, reqID)
	if !ok {
		return
	}
	filter.EmployeeID = user.UserID
	filter.Department = ""
	h.list(w, r, filter, reqID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter payroll.Filter, reqID string) {
	page := shared.ParsePagination(r, 10, 100)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Paginated(w, items, page.Meta(total), reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		api.Fail(w, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx", reqID)
		return
	}
	filter, ok := parseFilter(w, r, reqID)
	if !ok {
		return
	}
	rows, err := h.Service.Register(r.Context(), filter)
	if err != nil {
		fail(w, err, reqID)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = payroll.WriteRegisterXLSX(&buf, rows)
	} else {
		err = payroll.WriteRegisterCSV(&buf, rows)
	}
	if err != nil {
		slog.Error("salary register export failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export salary register", reqID)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=salary-register-%s.%s", time.Now().UTC().Format("20060102"), format))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("salary register write failed", "err", err)
	}
}

// load fetches a salary visible to the caller: its employee or admin/hr.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, reqID string) (payroll.Salary, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return payroll.Salary{}, false
	}
	sal, err := h.Service.Get(r.Context(), chi.URLParam(r, "salaryID"))
	if err != nil {
		fail(w, err, reqID)
		return payroll.Salary{}, false
	}
	if !auth.CanAccessOwned(user, sal.EmployeeID, false) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return payroll.Salary{}, false
	}
	return sal, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sal, ok := h.load(w, r, reqID)
	if !ok {
		return
	}
	api.Success(w, sal, reqID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sal, ok := h.load(w, r, reqID)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := payroll.WritePayslip(&buf, sal); err != nil {
		slog.Error("payslip render failed", "err", err, "salaryId", sal.ID, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to render payslip", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+payroll.PayslipFilename(sal))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("payslip write failed", "err", err)
	}
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload payroll.Adjustments
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "salaryID")
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	sal, err := h.Service.Update(r.Context(), id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "salary.update", id, before, sal)
	api.SuccessMessage(w, sal, "salary updated", reqID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "salaryID")
	sal, err := h.Service.Approve(r.Context(), id, user.UserID)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "salary.approve", id, map[string]string{"status": payroll.StatusPending}, sal)
	api.SuccessMessage(w, sal, "salary approved", reqID)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "salaryID")
	sal, err := h.Service.MarkPaid(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "salary.pay", id, map[string]string{"status": payroll.StatusApproved}, sal)
	api.SuccessMessage(w, sal, "salary marked as paid", reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "salaryID")
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "salary.delete", id, before, nil)
	api.SuccessMessage(w, map[string]string{"id": id}, "salary deleted", reqID)
}
