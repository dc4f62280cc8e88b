package leavehandler

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/domain/leave"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Audit   *audit.Service
}

func NewHandler(service *leave.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	reviewers := middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)
	hr := middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)
	r.Route("/leaves", func(r chi.Router) {
		r.Post("/", h.handleApply)
		r.Get("/", h.handleList)
		r.Get("/my", h.handleMine)
		r.Get("/calendar/export", h.handleCalendarExport)

		r.Get("/balances", h.handleMyBalance)
		r.With(hr).Post("/balances/initialize", h.handleInitializeBalances)
		r.Get("/balances/{employeeID}", h.handleEmployeeBalance)

		r.Get("/policies", h.handleListPolicies)
		r.With(hr).Post("/policies", h.handleCreatePolicy)
		r.With(hr).Put("/policies/{policyID}", h.handleUpdatePolicy)

		r.Get("/{leaveID}", h.handleGet)
		r.With(reviewers).Put("/{leaveID}/approve", h.handleApprove)
		r.With(reviewers).Put("/{leaveID}/reject", h.handleReject)
		r.Put("/{leaveID}/cancel", h.handleCancel)
	})
}

type initializeRequest struct {
	Year       int    `json:"year" validate:"required,gte=2000,lte=2100"`
	EmployeeID string `json:"employeeId" validate:"omitempty,uuid"`
}

func fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave not found", reqID)
	case errors.Is(err, leave.ErrPolicyNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave policy not found", reqID)
	case errors.Is(err, leave.ErrBalanceNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave balance not found", reqID)
	case errors.Is(err, leave.ErrOverlap):
		api.Fail(w, http.StatusConflict, "leave_overlap", err.Error(), reqID)
	case errors.Is(err, leave.ErrNotPending):
		api.Fail(w, http.StatusConflict, "already_processed", err.Error(), reqID)
	case errors.Is(err, leave.ErrNotCancellable):
		api.Fail(w, http.StatusConflict, "not_cancellable", err.Error(), reqID)
	case errors.Is(err, leave.ErrPolicyExists):
		api.Fail(w, http.StatusConflict, "policy_exists", err.Error(), reqID)
	case errors.Is(err, leave.ErrBalanceExists):
		api.Fail(w, http.StatusConflict, "balance_exists", err.Error(), reqID)
	case errors.Is(err, leave.ErrSelfReview):
		api.Fail(w, http.StatusForbidden, "self_review", err.Error(), reqID)
	case errors.Is(err, leave.ErrInvalidRange),
		errors.Is(err, leave.ErrHalfDayRange),
		errors.Is(err, leave.ErrCrossesYear),
		errors.Is(err, leave.ErrInsufficientBalance),
		errors.Is(err, leave.ErrNoticePeriod),
		errors.Is(err, leave.ErrMaxConsecutive),
		errors.Is(err, leave.ErrTypeUnavailable):
		api.Fail(w, http.StatusBadRequest, "invalid_leave", err.Error(), reqID)
	default:
		slog.Error("leave request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "leave_failed", "request failed", reqID)
	}
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload leave.ApplyInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if payload.IsHalfDay && !start.IsZero() && !end.IsZero() && !start.Equal(end) {
		v.Add("endDate", "must equal startDate for half-day leave")
	}
	if v.Reject(w, reqID) {
		return
	}

	l, err := h.Service.Apply(r.Context(), user.UserID, leave.Request{
		LeaveType:     payload.LeaveType,
		Start:         start,
		End:           end,
		IsHalfDay:     payload.IsHalfDay,
		HalfDayPeriod: payload.HalfDayPeriod,
		Reason:        strings.TrimSpace(payload.Reason),
	})
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.apply", "leave", l.ID, reqID, shared.ClientIP(r), nil, l); err != nil {
		slog.Warn("audit leave.apply failed", "err", err)
	}
	api.Created(w, l, reqID)
}

func parseFilter(w http.ResponseWriter, r *http.Request, reqID string) (leave.Filter, bool) {
	q := r.URL.Query()
	filter := leave.Filter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		Status:     strings.TrimSpace(q.Get("status")),
		LeaveType:  strings.TrimSpace(q.Get("leaveType")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{leave.StatusPending, leave.StatusApproved, leave.StatusRejected, leave.StatusCancelled}, "must be a valid leave status")
	v.Enum("leaveType", filter.LeaveType, leave.Types, "must be a valid leave type")
	start, end, err := shared.DateRange(r)
	if err != nil {
		v.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	}
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return leave.Filter{}, false
	}
	filter.From, filter.To = start, end
	return filter, true
}

// handleList returns every leave to reviewers and only the caller's own to
// employees.
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
	if !user.Supervisor() {
		filter.EmployeeID = user.UserID
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
	h.list(w, r, filter, reqID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter leave.Filter, reqID string) {
	page := shared.ParsePagination(r, 10, 100)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
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
	l, err := h.Service.Get(r.Context(), chi.URLParam(r, "leaveID"))
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if !auth.CanAccessOwned(user, l.EmployeeID, false) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this leave", reqID)
		return
	}
	api.Success(w, l, reqID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "leaveID")
	l, err := h.Service.Approve(r.Context(), id, user.UserID)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.approve", "leave", id, reqID, shared.ClientIP(r), nil, l); err != nil {
		slog.Warn("audit leave.approve failed", "err", err)
	}
	api.SuccessMessage(w, l, "leave approved", reqID)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload leave.ReviewInput
	if r.ContentLength != 0 && !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "leaveID")
	l, err := h.Service.Reject(r.Context(), id, user.UserID, strings.TrimSpace(payload.RejectionReason))
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.reject", "leave", id, reqID, shared.ClientIP(r), nil, l); err != nil {
		slog.Warn("audit leave.reject failed", "err", err)
	}
	api.SuccessMessage(w, l, "leave rejected", reqID)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "leaveID")
	current, err := h.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if !auth.CanAccessOwned(user, current.EmployeeID, false) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to cancel this leave", reqID)
		return
	}
	l, err := h.Service.Cancel(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.cancel", "leave", id, reqID, shared.ClientIP(r), current, l); err != nil {
		slog.Warn("audit leave.cancel failed", "err", err)
	}
	api.SuccessMessage(w, l, "leave cancelled", reqID)
}

func (h *Handler) handleMyBalance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	h.balance(w, r, user.UserID, reqID)
}

func (h *Handler) handleEmployeeBalance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !auth.CanAccessOwned(user, employeeID, true) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	h.balance(w, r, employeeID, reqID)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request, employeeID, reqID string) {
	year := shared.QueryInt(r, "year", 0)
	if year != 0 && (year < 2000 || year > 2100) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "year", Reason: "must be between 2000 and 2100"}})
		return
	}
	b, err := h.Service.Balance(r.Context(), employeeID, year)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, b, reqID)
}

// handleInitializeBalances opens the year for one employee, or for every
// active employee when employeeId is omitted.
func (h *Handler) handleInitializeBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload initializeRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	if payload.EmployeeID != "" {
		b, err := h.Service.InitializeYear(r.Context(), payload.EmployeeID, payload.Year)
		if err != nil {
			fail(w, err, reqID)
			return
		}
		if err := h.Audit.Record(r.Context(), user.UserID, "leave.balance.initialize", "leave_balance", b.ID, reqID, shared.ClientIP(r), nil, b); err != nil {
			slog.Warn("audit leave.balance.initialize failed", "err", err)
		}
		api.Created(w, b, reqID)
		return
	}
	summary, err := h.Service.InitializeAll(r.Context(), payload.Year)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.balance.initialize_all", "leave_balance", strconv.Itoa(payload.Year), reqID, shared.ClientIP(r), nil, summary); err != nil {
		slog.Warn("audit leave.balance.initialize_all failed", "err", err)
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	policies, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, policies, reqID)
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload leave.PolicyInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	p, err := h.Service.CreatePolicy(r.Context(), payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.policy.create", "leave_policy", p.ID, reqID, shared.ClientIP(r), nil, p); err != nil {
		slog.Warn("audit leave.policy.create failed", "err", err)
	}
	api.Created(w, p, reqID)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload leave.PolicyUpdate
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	id := chi.URLParam(r, "policyID")
	p, err := h.Service.UpdatePolicy(r.Context(), id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.policy.update", "leave_policy", id, reqID, shared.ClientIP(r), nil, p); err != nil {
		slog.Warn("audit leave.policy.update failed", "err", err)
	}
	api.SuccessMessage(w, p, "policy updated", reqID)
}

// handleCalendarExport writes approved leaves as CSV or iCalendar. Employees
// only see their own.
func (h *Handler) handleCalendarExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "ics" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "format", Reason: "must be one of: csv, ics"}})
		return
	}
	filter, ok := parseFilter(w, r, reqID)
	if !ok {
		return
	}
	filter.Status = leave.StatusApproved
	if !user.Supervisor() {
		filter.EmployeeID = user.UserID
	}
	rows, _, err := h.Service.List(r.Context(), filter, 0, 0)
	if err != nil {
		fail(w, err, reqID)
		return
	}

	if format == "ics" {
		w.Header().Set("Content-Type", "text/calendar")
		w.Header().Set("Content-Disposition", "attachment; filename=leave-calendar.ics")
		if err := leave.WriteCalendar(w, rows, h.Service.Now().UTC()); err != nil {
			slog.Warn("calendar export write failed", "err", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-calendar.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "employee", "leave_type", "start_date", "end_date", "total_days", "half_day_period"}); err != nil {
		slog.Warn("calendar export csv header write failed", "err", err)
	}
	for _, l := range rows {
		record := []string{
			l.ID,
			leave.CalendarName(l),
			l.LeaveType,
			l.StartDate.Format(shared.DateLayout),
			l.EndDate.Format(shared.DateLayout),
			strconv.FormatFloat(l.TotalDays, 'f', -1, 64),
			l.HalfDayPeriod,
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("calendar export csv row write failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("calendar export csv flush failed", "err", err)
	}
}


