package leave

import (
	"errors"
	"time"
)

const (
	TypeAnnual    = "annual"
	TypeSick      = "sick"
	TypeCasual    = "casual"
	TypeMaternity = "maternity"
	TypePaternity = "paternity"
	TypeUnpaid    = "unpaid"

	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"

	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
)

var Types = []string{TypeAnnual, TypeSick, TypeCasual, TypeMaternity, TypePaternity, TypeUnpaid}

var (
	ErrNotFound            = errors.New("leave not found")
	ErrInvalidRange        = errors.New("end date must not be before start date")
	ErrHalfDayRange        = errors.New("half-day leave must start and end on the same day")
	ErrCrossesYear         = errors.New("leave must start and end in the same calendar year")
	ErrOverlap             = errors.New("leave overlaps an existing pending or approved leave")
	ErrNotPending          = errors.New("leave has already been processed")
	ErrNotCancellable      = errors.New("only pending or not yet started approved leaves can be cancelled")
	ErrSelfReview          = errors.New("cannot review own leave")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrNoticePeriod        = errors.New("leave does not meet the minimum notice period")
	ErrMaxConsecutive      = errors.New("leave exceeds the maximum consecutive days")
	ErrTypeUnavailable     = errors.New("leave type is not available")
	ErrPolicyNotFound      = errors.New("leave policy not found")
	ErrPolicyExists        = errors.New("a policy for this leave type already exists")
	ErrBalanceNotFound     = errors.New("leave balance not found")
	ErrBalanceExists       = errors.New("leave balance already initialized for this year")
)

type EmployeeRef struct {
	EmployeeID string `json:"employeeId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
}

type Leave struct {
	ID              string       `json:"id"`
	EmployeeID      string       `json:"employeeId"`
	LeaveType       string       `json:"leaveType"`
	StartDate       time.Time    `json:"startDate"`
	EndDate         time.Time    `json:"endDate"`
	IsHalfDay       bool         `json:"isHalfDay"`
	HalfDayPeriod   string       `json:"halfDayPeriod,omitempty"`
	TotalDays       float64      `json:"totalDays"`
	Reason          string       `json:"reason"`
	Status          string       `json:"status"`
	ReviewedBy      *string      `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewedAt,omitempty"`
	RejectionReason string       `json:"rejectionReason,omitempty"`
	Employee        *EmployeeRef `json:"employee,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type ApplyInput struct {
	LeaveType     string `json:"leaveType" validate:"required,oneof=annual sick casual maternity paternity unpaid"`
	StartDate     string `json:"startDate" validate:"required"`
	EndDate       string `json:"endDate" validate:"required"`
	IsHalfDay     bool   `json:"isHalfDay"`
	HalfDayPeriod string `json:"halfDayPeriod" validate:"omitempty,oneof=morning afternoon"`
	Reason        string `json:"reason" validate:"required,max=1000"`
}

// Request is an ApplyInput with parsed dates.
type Request struct {
	LeaveType     string
	Start         time.Time
	End           time.Time
	IsHalfDay     bool
	HalfDayPeriod string
	Reason        string
}

type ReviewInput struct {
	RejectionReason string `json:"rejectionReason" validate:"omitempty,max=1000"`
}

// Review is the status transition applied by ReviewWithBalance.
type Review struct {
	Status          string
	ReviewerID      string
	RejectionReason string
	At              time.Time
}

type Filter struct {
	EmployeeID string
	Status     string
	LeaveType  string
	From       time.Time
	To         time.Time
}

type Policy struct {
	ID                 string    `json:"id"`
	LeaveType          string    `json:"leaveType"`
	AnnualAllocation   float64   `json:"annualAllocation"`
	MaxCarryForward    float64   `json:"maxCarryForward"`
	MaxConsecutiveDays int       `json:"maxConsecutiveDays"`
	MinNoticeDays      int       `json:"minNoticeDays"`
	TrackBalance       bool      `json:"trackBalance"`
	IsActive           bool      `json:"isActive"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type PolicyInput struct {
	LeaveType          string  `json:"leaveType" validate:"required,oneof=annual sick casual maternity paternity unpaid"`
	AnnualAllocation   float64 `json:"annualAllocation" validate:"gte=0,lte=365"`
	MaxCarryForward    float64 `json:"maxCarryForward" validate:"gte=0,lte=365"`
	MaxConsecutiveDays int     `json:"maxConsecutiveDays" validate:"gte=0,lte=365"`
	MinNoticeDays      int     `json:"minNoticeDays" validate:"gte=0,lte=365"`
	TrackBalance       *bool   `json:"trackBalance"`
	IsActive           *bool   `json:"isActive"`
	Description        string  `json:"description" validate:"max=500"`
}

type PolicyUpdate struct {
	AnnualAllocation   *float64 `json:"annualAllocation" validate:"omitempty,gte=0,lte=365"`
	MaxCarryForward    *float64 `json:"maxCarryForward" validate:"omitempty,gte=0,lte=365"`
	MaxConsecutiveDays *int     `json:"maxConsecutiveDays" validate:"omitempty,gte=0,lte=365"`
	MinNoticeDays      *int     `json:"minNoticeDays" validate:"omitempty,gte=0,lte=365"`
	TrackBalance       *bool    `json:"trackBalance"`
	IsActive           *bool    `json:"isActive"`
	Description        *string  `json:"description" validate:"omitempty,max=500"`
}

type BalanceEntry struct {
	Type           string  `json:"type"`
	Allocated      float64 `json:"allocated"`
	CarriedForward float64 `json:"carriedForward"`
	Used           float64 `json:"used"`
	Pending        float64 `json:"pending"`
	Available      float64 `json:"available"`
}

type Balance struct {
	ID         string         `json:"id"`
	EmployeeID string         `json:"employeeId"`
	Year       int            `json:"year"`
	Entries    []BalanceEntry `json:"entries"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Entry returns the entry for leaveType, or nil when the type is not tracked.
func (b *Balance) Entry(leaveType string) *BalanceEntry {
	for i := range b.Entries {
		if b.Entries[i].Type == leaveType {
			return &b.Entries[i]
		}
	}
	return nil
}

// Profile is the subset of the employee record that drives allocations.
type Profile struct {
	JoinDate   *time.Time
	Allowances map[string]float64
}
