package attendance

import (
	"errors"
	"time"
)

const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusHalfDay = "half_day"
	StatusAbsent  = "absent"

	MethodWeb       = "web"
	MethodMobile    = "mobile"
	MethodBiometric = "biometric"
	MethodManual    = "manual"
)

var (
	Statuses = []string{StatusPresent, StatusLate, StatusHalfDay, StatusAbsent}
	Methods  = []string{MethodWeb, MethodMobile, MethodBiometric, MethodManual}
)

var (
	ErrNotFound          = errors.New("attendance record not found")
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrNotCheckedIn      = errors.New("no check-in recorded today")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrBreakInProgress   = errors.New("a break is already in progress")
	ErrNoOpenBreak       = errors.New("no break in progress")
	ErrInvalidCorrection = errors.New("check-out must be after check-in")
	ErrCorrectionDate    = errors.New("check-in must fall on the record's date")
)

type CheckPoint struct {
	Time     *time.Time `json:"time,omitempty"`
	Location string     `json:"location,omitempty"`
	Method   string     `json:"method,omitempty"`
}

type Break struct {
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

type EmployeeRef struct {
	EmployeeID string `json:"employeeId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
}

// Record is one employee's attendance for one calendar day. WorkHours and
// Overtime are minutes.
type Record struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Date      time.Time    `json:"date"`
	CheckIn   CheckPoint   `json:"checkIn"`
	CheckOut  CheckPoint   `json:"checkOut"`
	Breaks    []Break      `json:"breaks"`
	WorkHours int          `json:"workHours"`
	Overtime  int          `json:"overtime"`
	Status    string       `json:"status"`
	Notes     string       `json:"notes"`
	Employee  *EmployeeRef `json:"employee,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type PunchInput struct {
	Location string `json:"location" validate:"omitempty,max=200"`
	Method   string `json:"method" validate:"omitempty,oneof=web mobile biometric manual"`
	Notes    string `json:"notes" validate:"omitempty,max=500"`
}

type BreakInput struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type CorrectionInput struct {
	CheckIn  *time.Time `json:"checkInTime"`
	CheckOut *time.Time `json:"checkOutTime"`
	Status   *string    `json:"status" validate:"omitempty,oneof=present late half_day absent"`
	Notes    *string    `json:"notes" validate:"omitempty,max=500"`
}

type Filter struct {
	UserID     string
	Department string
	Status     string
	From       time.Time
	To         time.Time
}

type Stats struct {
	TotalRecords      int     `json:"totalRecords"`
	Present           int     `json:"present"`
	Late              int     `json:"late"`
	HalfDay           int     `json:"halfDay"`
	Absent            int     `json:"absent"`
	TotalWorkMinutes  int     `json:"totalWorkMinutes"`
	TotalOvertime     int     `json:"totalOvertimeMinutes"`
	AverageWorkMinute float64 `json:"averageWorkMinutes"`
}
