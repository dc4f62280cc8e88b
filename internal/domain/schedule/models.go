package schedule

import (
	"errors"
	"time"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"

	SwapPending   = "pending"
	SwapApproved  = "approved"
	SwapRejected  = "rejected"
	SwapCancelled = "cancelled"
)

var Statuses = []string{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}

var (
	ErrNotFound         = errors.New("schedule not found")
	ErrConflict         = errors.New("employee already has an active schedule on this date")
	ErrShiftNotFound    = errors.New("shift not found")
	ErrShiftExists      = errors.New("a shift with this name already exists")
	ErrShiftInactive    = errors.New("shift is not active")
	ErrShiftInUse       = errors.New("shift is referenced by schedules")
	ErrInvalidRule      = errors.New("invalid recurrence rule")
	ErrTooManyDates     = errors.New("recurrence produces too many dates")
	ErrInvalidRange     = errors.New("until date must not be before start date")
	ErrSwapNotFound     = errors.New("swap request not found")
	ErrSwapNotPending   = errors.New("swap request has already been processed")
	ErrSwapSameEmployee = errors.New("cannot swap with own schedule")
	ErrSwapInactive     = errors.New("only scheduled assignments can be swapped")
	ErrNotOwner         = errors.New("schedule belongs to another employee")
)

type Shift struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	BreakMinutes    int       `json:"breakMinutes"`
	CrossesMidnight bool      `json:"crossesMidnight"`
	IsActive        bool      `json:"isActive"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type ShiftInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	StartTime    string `json:"startTime" validate:"required,hhmm"`
	EndTime      string `json:"endTime" validate:"required,hhmm"`
	BreakMinutes int    `json:"breakMinutes" validate:"gte=0,lte=480"`
	IsActive     *bool  `json:"isActive"`
	Description  string `json:"description" validate:"max=500"`
}

type ShiftUpdate struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	StartTime    *string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime      *string `json:"endTime" validate:"omitempty,hhmm"`
	BreakMinutes *int    `json:"breakMinutes" validate:"omitempty,gte=0,lte=480"`
	IsActive     *bool   `json:"isActive"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
}

type EmployeeRef struct {
	EmployeeID string `json:"employeeId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
}

// Schedule assigns an employee to a shift on one date. The shift window is
// copied so later shift edits do not rewrite history.
type Schedule struct {
	ID         string       `json:"id"`
	EmployeeID string       `json:"employeeId"`
	ShiftID    string       `json:"shiftId"`
	ShiftName  string       `json:"shiftName"`
	Date       time.Time    `json:"date"`
	StartTime  string       `json:"startTime"`
	EndTime    string       `json:"endTime"`
	Status     string       `json:"status"`
	Overtime   float64      `json:"overtime"`
	Notes      string       `json:"notes"`
	CreatedBy  *string      `json:"createdBy,omitempty"`
	Employee   *EmployeeRef `json:"employee,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type ScheduleInput struct {
	EmployeeID string `json:"employeeId" validate:"required,uuid"`
	ShiftID    string `json:"shiftId" validate:"required,uuid"`
	Date       string `json:"date" validate:"required"`
	StartTime  string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime    string `json:"endTime" validate:"omitempty,hhmm"`
	Notes      string `json:"notes" validate:"max=500"`
}

type RecurringInput struct {
	EmployeeID string `json:"employeeId" validate:"required,uuid"`
	ShiftID    string `json:"shiftId" validate:"required,uuid"`
	StartDate  string `json:"startDate" validate:"required"`
	Until      string `json:"until" validate:"required"`
	Rule       string `json:"rrule" validate:"max=500"`
	Notes      string `json:"notes" validate:"max=500"`
}

// Assignment is a ScheduleInput with a parsed date.
type Assignment struct {
	EmployeeID string
	ShiftID    string
	Date       time.Time
	StartTime  string
	EndTime    string
	Notes      string
}

type Recurrence struct {
	EmployeeID string
	ShiftID    string
	Start      time.Time
	Until      time.Time
	Rule       string
	Notes      string
}

type RecurringResult struct {
	Created []Schedule `json:"created"`
	Skipped []string   `json:"skippedDates"`
}

type ScheduleUpdate struct {
	ShiftID   *string  `json:"shiftId" validate:"omitempty,uuid"`
	StartTime *string  `json:"startTime" validate:"omitempty,hhmm"`
	EndTime   *string  `json:"endTime" validate:"omitempty,hhmm"`
	Status    *string  `json:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled no_show"`
	Overtime  *float64 `json:"overtime" validate:"omitempty,gte=0,lte=24"`
	Notes     *string  `json:"notes" validate:"omitempty,max=500"`
}

type Filter struct {
	EmployeeID string
	ShiftID    string
	Status     string
	From       time.Time
	To         time.Time
}

type Stats struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"byStatus"`
	TotalOvertimeHours float64        `json:"totalOvertimeHours"`
}

type SwapRequest struct {
	ID               string     `json:"id"`
	RequesterID      string     `json:"requesterId"`
	ScheduleID       string     `json:"scheduleId"`
	TargetScheduleID string     `json:"targetScheduleId"`
	Reason           string     `json:"reason"`
	Status           string     `json:"status"`
	ReviewedBy       *string    `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type SwapInput struct {
	ScheduleID       string `json:"scheduleId" validate:"required,uuid"`
	TargetScheduleID string `json:"targetScheduleId" validate:"required,uuid"`
	Reason           string `json:"reason" validate:"max=500"`
}

type SwapFilter struct {
	RequesterID string
	Status      string
}
