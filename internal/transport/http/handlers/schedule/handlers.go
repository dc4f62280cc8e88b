package schedulehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/domain/schedule"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service *schedule.Service
	Audit   *audit.Service
}

func NewHandler(service *schedule.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	planners := middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)
	hr := middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)
	r.Route("/schedules", func(r chi.Router) {
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.handleListShifts)
			r.With(hr).Post("/", h.handleCreateShift)
			r.Get("/{shiftID}", h.handleGetShift)
			r.With(hr).Put("/{shiftID}", h.handleUpdateShift)
			r.With(hr).Delete("/{shiftID}", h.handleDeleteShift)
		})
		r.Route("/swaps", func(r chi.Router) {
			r.Post("/", h.handleRequestSwap)
			r.Get("/", h.handleListSwaps)
			r.Get("/{swapID}", h.handleGetSwap)
			r.With(planners).Put("/{swapID}/approve", h.handleApproveSwap)
			r.With(planners).Put("/{swapID}/reject", h.handleRejectSwap)
			r.Put("/{swapID}/cancel", h.handleCancelSwap)
		})

		r.With(planners).Post("/", h.handleCreate)
		r.With(planners).Post("/recurring", h.handleCreateRecurring)
		r.Get("/", h.handleList)
		r.Get("/my", h.handleMine)
		r.With(planners).Get("/stats", h.handleStats)
		r.Get("/{scheduleID}", h.handleGet)
		r.With(planners).Put("/{scheduleID}", h.handleUpdate)
		r.With(hr).Delete("/{scheduleID}", h.handleDelete)
	})
}

func fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "schedule not found", reqID)
	case errors.Is(err, schedule.ErrShiftNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "shift not found", reqID)
	case errors.Is(err, schedule.ErrSwapNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "swap request not found", reqID)
	case errors.Is(err, schedule.ErrConflict):
		api.Fail(w, http.StatusConflict, "schedule_conflict", err.Error(), reqID)
	case errors.Is(err, schedule.ErrShiftExists):
		api.Fail(w, http.StatusConflict, "shift_exists", err.Error(), reqID)
	case errors.Is(err, schedule.ErrShiftInUse):
		api.Fail(w, http.StatusConflict, "shift_in_use", err.Error(), reqID)
	case errors.Is(err, schedule.ErrSwapNotPending):
		api.Fail(w, http.StatusConflict, "already_processed", err.Error(), reqID)
	case errors.Is(err, schedule.ErrNotOwner):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, schedule.ErrShiftInactive),
		errors.Is(err, schedule.ErrInvalidRule),
		errors.Is(err, schedule.ErrTooManyDates),
		errors.Is(err, schedule.ErrInvalidRange),
		errors.Is(err, schedule.ErrSwapSameEmployee),
		errors.Is(err, schedule.ErrSwapInactive):
		api.Fail(w, http.StatusBadRequest, "invalid_schedule", err.Error(), reqID)
	default:
		slog.Error("schedule request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "schedule_failed", "request failed", reqID)
	}
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, before, after any) {
	reqID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, reqID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) handleListShifts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	shifts, err := h.Service.ListShifts(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, shifts, reqID)
}

func (h *Handler) handleGetShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	sh, err := h.Service.GetShift(r.Context(), chi.URLParam(r, "shiftID"))
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, sh, reqID)
}

func (h *Handler) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload schedule.ShiftInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	sh, err := h.Service.CreateShift(r.Context(), payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "shift.create", "shift", sh.ID, nil, sh)
	api.Created(w, sh, reqID)
}

func (h *Handler) handleUpdateShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload schedule.ShiftUpdate
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	id := chi.URLParam(r, "shiftID")
	sh, err := h.Service.UpdateShift(r.Context(), id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "shift.update", "shift", id, nil, sh)
	api.SuccessMessage(w, sh, "shift updated", reqID)
}

func (h *Handler) handleDeleteShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "shiftID")
	if err := h.Service.DeleteShift(r.Context(), id); err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "shift.delete", "shift", id, nil, nil)
	api.SuccessMessage(w, nil, "shift deleted", reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload schedule.ScheduleInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, reqID) {
		return
	}
	sch, err := h.Service.Create(r.Context(), user.UserID, schedule.Assignment{
		EmployeeID: payload.EmployeeID,
		ShiftID:    payload.ShiftID,
		Date:       date,
		StartTime:  payload.StartTime,
		EndTime:    payload.EndTime,
		Notes:      strings.TrimSpace(payload.Notes),
	})
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "schedule.create", "schedule", sch.ID, nil, sch)
	api.Created(w, sch, reqID)
}

func (h *Handler) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload schedule.RecurringInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	start, _ := v.Date("startDate", payload.StartDate)
	until, _ := v.Date("until", payload.Until)
	v.DateOrder("startDate", start, "until", until)
	if v.Reject(w, reqID) {
		return
	}
	result, err := h.Service.CreateRecurring(r.Context(), user.UserID, schedule.Recurrence{
		EmployeeID: payload.EmployeeID,
		ShiftID:    payload.ShiftID,
		Start:      start,
		Until:      until,
		Rule:       strings.TrimSpace(payload.Rule),
		Notes:      strings.TrimSpace(payload.Notes),
	})
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "schedule.create_recurring", "employee", payload.EmployeeID, nil, map[string]any{
		"created": len(result.Created),
		"skipped": result.Skipped,
		"rrule":   payload.Rule,
	})
	api.Created(w, result, reqID)
}

func parseFilter(w http.ResponseWriter, r *http.Request, reqID string) (schedule.Filter, bool) {
	q := r.URL.Query()
	filter := schedule.Filter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		ShiftID:    strings.TrimSpace(q.Get("shiftId")),
		Status:     strings.TrimSpace(q.Get("status")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, schedule.Statuses, "must be a valid schedule status")
	start, end, err := shared.DateRange(r)
	if err != nil {
		v.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	}
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return schedule.Filter{}, false
	}
	filter.From, filter.To = start, end
	return filter, true
}

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

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter schedule.Filter, reqID string) {
	page := shared.ParsePagination(r, 20, 200)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Paginated(w, items, page.Meta(total), reqID)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := parseFilter(w, r, reqID)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(r.Context(), filter)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, stats, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	sch, err := h.Service.Get(r.Context(), chi.URLParam(r, "scheduleID"))
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if !auth.CanAccessOwned(user, sch.EmployeeID, true) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	api.Success(w, sch, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload schedule.ScheduleUpdate
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	id := chi.URLParam(r, "scheduleID")
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	sch, err := h.Service.Update(r.Context(), id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "schedule.update", "schedule", id, before, sch)
	api.SuccessMessage(w, sch, "schedule updated", reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "scheduleID")
	if err := h.Service.Delete(r.Context(), id); err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "schedule.delete", "schedule", id, nil, nil)
	api.SuccessMessage(w, nil, "schedule deleted", reqID)
}

func (h *Handler) handleRequestSwap(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload schedule.SwapInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if payload.ScheduleID != "" && payload.ScheduleID == payload.TargetScheduleID {
		v.Add("targetScheduleId", "must differ from scheduleId")
	}
	if v.Reject(w, reqID) {
		return
	}
	swap, err := h.Service.RequestSwap(r.Context(), user.UserID, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "schedule.swap.request", "swap_request", swap.ID, nil, swap)
	api.Created(w, swap, reqID)
}

func (h *Handler) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	filter := schedule.SwapFilter{
		RequesterID: strings.TrimSpace(r.URL.Query().Get("requesterId")),
		Status:      strings.TrimSpace(r.URL.Query().Get("status")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{schedule.SwapPending, schedule.SwapApproved, schedule.SwapRejected, schedule.SwapCancelled}, "must be a valid swap status")
	if v.Reject(w, reqID) {
		return
	}
	if !user.Supervisor() {
		filter.RequesterID = user.UserID
	}
	page := shared.ParsePagination(r, 10, 100)
	items, total, err := h.Service.ListSwaps(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Paginated(w, items, page.Meta(total), reqID)
}

func (h *Handler) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	swap, err := h.Service.GetSwap(r.Context(), chi.URLParam(r, "swapID"))
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if !auth.CanAccessOwned(user, swap.RequesterID, true) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	api.Success(w, swap, reqID)
}

func (h *Handler) handleApproveSwap(w http.ResponseWriter, r *http.Request) {
	h.closeSwap(w, r, "approve")
}

func (h *Handler) handleRejectSwap(w http.ResponseWriter, r *http.Request) {
	h.closeSwap(w, r, "reject")
}

func (h *Handler) handleCancelSwap(w http.ResponseWriter, r *http.Request) {
	h.closeSwap(w, r, "cancel")
}

func (h *Handler) closeSwap(w http.ResponseWriter, r *http.Request, action string) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	id := chi.URLParam(r, "swapID")
	var (
		swap schedule.SwapRequest
		err  error
	)
	switch action {
	case "approve":
		swap, err = h.Service.ApproveSwap(r.Context(), id, user.UserID)
	case "reject":
		swap, err = h.Service.RejectSwap(r.Context(), id, user.UserID)
	default:
		swap, err = h.Service.CancelSwap(r.Context(), id, user.UserID)
	}
	if err != nil {
		fail(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "schedule.swap."+action, "swap_request", id, nil, swap)
	api.Success(w, swap, reqID)
}
