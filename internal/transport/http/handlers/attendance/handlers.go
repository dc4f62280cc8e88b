package attendancehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/attendance"
	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service *attendance.Service
	Audit   *audit.Service
}

func NewHandler(service *attendance.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	supervisors := middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/clock-in", h.handleClockIn)
		r.Post("/clock-out", h.handleClockOut)
		r.Post("/break/start", h.handleBreakStart)
		r.Post("/break/end", h.handleBreakEnd)
		r.Get("/today", h.handleToday)
		r.Get("/my", h.handleMine)
		r.With(supervisors).Get("/", h.handleList)
		r.With(supervisors).Get("/stats", h.handleStats)
		r.Get("/{attendanceID}", h.handleGet)
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleHR)).Put("/{attendanceID}", h.handleCorrect)
	})
}

func fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "attendance record not found", reqID)
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		api.Fail(w, http.StatusConflict, "already_checked_in", err.Error(), reqID)
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		api.Fail(w, http.StatusConflict, "already_checked_out", err.Error(), reqID)
	case errors.Is(err, attendance.ErrBreakInProgress):
		api.Fail(w, http.StatusConflict, "break_in_progress", err.Error(), reqID)
	case errors.Is(err, attendance.ErrNotCheckedIn):
		api.Fail(w, http.StatusBadRequest, "not_checked_in", err.Error(), reqID)
	case errors.Is(err, attendance.ErrNoOpenBreak):
		api.Fail(w, http.StatusBadRequest, "no_open_break", err.Error(), reqID)
	case errors.Is(err, attendance.ErrInvalidCorrection),
		errors.Is(err, attendance.ErrCorrectionDate):
		api.Fail(w, http.StatusBadRequest, "invalid_correction", err.Error(), reqID)
	default:
		slog.Error("attendance request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "attendance_failed", "request failed", reqID)
	}
}

// decodeOptional accepts an empty body for punch endpoints.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any, reqID string) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return shared.DecodeJSON(w, r, dst, reqID)
}

func (h *Handler) handleClockIn(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, true)
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, false)
}

func (h *Handler) punch(w http.ResponseWriter, r *http.Request, in bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload attendance.PunchInput
	if !decodeOptional(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	if in {
		rec, err := h.Service.ClockIn(r.Context(), user.UserID, payload)
		if err != nil {
			fail(w, err, reqID)
			return
		}
		api.Created(w, rec, reqID)
		return
	}
	rec, err := h.Service.ClockOut(r.Context(), user.UserID, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleBreakStart(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload attendance.BreakInput
	if !decodeOptional(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	rec, err := h.Service.StartBreak(r.Context(), user.UserID, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleBreakEnd(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	rec, err := h.Service.EndBreak(r.Context(), user.UserID)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

// handleToday returns null data when the caller has not clocked in yet.
func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	rec, err := h.Service.Today(r.Context(), user.UserID)
	if errors.Is(err, attendance.ErrNotFound) {
		api.Success(w, nil, reqID)
		return
	}
	if err != nil {
		fail(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func parseFilter(w http.ResponseWriter, r *http.Request, reqID string) (attendance.Filter, bool) {
	q := r.URL.Query()
	filter := attendance.Filter{
		UserID:     strings.TrimSpace(q.Get("userId")),
		Department: strings.TrimSpace(q.Get("department")),
		Status:     strings.TrimSpace(q.Get("status")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, attendance.Statuses, "must be a valid attendance status")
	start, end, err := shared.DateRange(r)
	if err != nil {
		v.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	}
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return attendance.Filter{}, false
	}
	filter.From, filter.To = start, end
	return filter, true
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
	filter.UserID = user.UserID
	filter.Department = ""
	h.list(w, r, filter, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := parseFilter(w, r, reqID)
	if !ok {
		return
	}
	h.list(w, r, filter, reqID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter attendance.Filter, reqID string) {
	page := shared.ParsePagination(r, 10, 100)
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
	rec, err := h.Service.Get(r.Context(), chi.URLParam(r, "attendanceID"))
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if !auth.CanAccessOwned(user, rec.UserID, true) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleCorrect(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload attendance.CorrectionInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id := chi.URLParam(r, "attendanceID")
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	rec, err := h.Service.Correct(r.Context(), id, payload)
	if err != nil {
		fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.correct", "attendance", id, reqID, shared.ClientIP(r), before, rec); err != nil {
		slog.Warn("audit attendance.correct failed", "err", err)
	}
	api.SuccessMessage(w, rec, "attendance corrected", reqID)
}
