package leave

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Service struct {
	Store    StoreAPI
	Location *time.Location
	Now      func() time.Time
}

func NewService(store StoreAPI, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: store, Location: loc, Now: time.Now}
}

func (s *Service) today() time.Time {
	local := s.Now().In(s.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Apply files a pending leave for employeeID. Overlap with the employee's
// pending or approved leaves is checked before the insert.
func (s *Service) Apply(ctx context.Context, employeeID string, req Request) (Leave, error) {
	l := Leave{
		EmployeeID:    employeeID,
		LeaveType:     req.LeaveType,
		StartDate:     req.Start,
		EndDate:       req.End,
		IsHalfDay:     req.IsHalfDay,
		HalfDayPeriod: req.HalfDayPeriod,
		Reason:        req.Reason,
		Status:        StatusPending,
	}
	if err := Validate(l); err != nil {
		return Leave{}, err
	}
	if l.IsHalfDay && l.HalfDayPeriod == "" {
		l.HalfDayPeriod = PeriodMorning
	}
	if !l.IsHalfDay {
		l.HalfDayPeriod = ""
	}
	l.TotalDays = TotalDays(l)

	policy, err := s.Store.PolicyByType(ctx, l.LeaveType)
	switch {
	case errors.Is(err, ErrPolicyNotFound):
	case err != nil:
		return Leave{}, err
	default:
		if err := CheckPolicy(policy, l, s.today()); err != nil {
			return Leave{}, err
		}
	}

	overlap, err := s.Store.HasOverlap(ctx, employeeID, l.StartDate, l.EndDate)
	if err != nil {
		return Leave{}, err
	}
	if overlap {
		return Leave{}, ErrOverlap
	}
	if policy.TrackBalance {
		if _, err := s.ensureBalance(ctx, employeeID, l.StartDate.Year()); err != nil {
			return Leave{}, err
		}
	}
	return s.Store.CreateWithBalance(ctx, l)
}

func (s *Service) Get(ctx context.Context, id string) (Leave, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Leave, int, error) {
	return s.Store.List(ctx, filter, limit, offset)
}

func (s *Service) Approve(ctx context.Context, id, reviewerID string) (Leave, error) {
	return s.review(ctx, id, Review{Status: StatusApproved, ReviewerID: reviewerID})
}

func (s *Service) Reject(ctx context.Context, id, reviewerID, reason string) (Leave, error) {
	return s.review(ctx, id, Review{Status: StatusRejected, ReviewerID: reviewerID, RejectionReason: reason})
}

func (s *Service) review(ctx context.Context, id string, review Review) (Leave, error) {
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Leave{}, err
	}
	if current.EmployeeID == review.ReviewerID {
		return Leave{}, ErrSelfReview
	}
	if current.Status != StatusPending {
		return Leave{}, ErrNotPending
	}
	review.At = s.Now().UTC()
	return s.Store.ReviewWithBalance(ctx, id, review)
}

func (s *Service) Cancel(ctx context.Context, id string) (Leave, error) {
	return s.Store.CancelWithBalance(ctx, id, s.today())
}

// Balance returns the employee's balance for year, initializing it from the
// active policies on first access.
func (s *Service) Balance(ctx context.Context, employeeID string, year int) (Balance, error) {
	if year == 0 {
		year = s.today().Year()
	}
	return s.ensureBalance(ctx, employeeID, year)
}

func (s *Service) ensureBalance(ctx context.Context, employeeID string, year int) (Balance, error) {
	b, err := s.Store.GetBalance(ctx, employeeID, year)
	if !errors.Is(err, ErrBalanceNotFound) {
		return b, err
	}
	b, err = s.InitializeYear(ctx, employeeID, year)
	if errors.Is(err, ErrBalanceExists) {
		return s.Store.GetBalance(ctx, employeeID, year)
	}
	return b, err
}

// InitializeYear creates the opening balance for year with carry forward from
// the previous year's balance when one exists.
func (s *Service) InitializeYear(ctx context.Context, employeeID string, year int) (Balance, error) {
	profile, err := s.Store.Profile(ctx, employeeID)
	if err != nil {
		return Balance{}, err
	}
	policies, err := s.Store.ListPolicies(ctx, true)
	if err != nil {
		return Balance{}, err
	}
	var previous *Balance
	prev, err := s.Store.GetBalance(ctx, employeeID, year-1)
	switch {
	case err == nil:
		previous = &prev
	case !errors.Is(err, ErrBalanceNotFound):
		return Balance{}, err
	}
	return s.Store.CreateBalance(ctx, Balance{
		EmployeeID: employeeID,
		Year:       year,
		Entries:    YearEntries(year, policies, profile, previous),
	})
}

type InitializeSummary struct {
	Year        int `json:"year"`
	Initialized int `json:"initialized"`
	Skipped     int `json:"skipped"`
}

// InitializeAll opens year balances for every active employee, skipping those
// already initialized.
func (s *Service) InitializeAll(ctx context.Context, year int) (InitializeSummary, error) {
	summary := InitializeSummary{Year: year}
	ids, err := s.Store.ActiveEmployeeIDs(ctx)
	if err != nil {
		return summary, err
	}
	for _, id := range ids {
		_, err := s.InitializeYear(ctx, id, year)
		if errors.Is(err, ErrBalanceExists) {
			summary.Skipped++
			continue
		}
		if err != nil {
			slog.Warn("leave balance initialization failed", "employee_id", id, "year", year, "err", err)
			return summary, err
		}
		summary.Initialized++
	}
	return summary, nil
}

func (s *Service) ListPolicies(ctx context.Context) ([]Policy, error) {
	return s.Store.ListPolicies(ctx, false)
}

func (s *Service) CreatePolicy(ctx context.Context, in PolicyInput) (Policy, error) {
	p := Policy{
		LeaveType:          in.LeaveType,
		AnnualAllocation:   in.AnnualAllocation,
		MaxCarryForward:    in.MaxCarryForward,
		MaxConsecutiveDays: in.MaxConsecutiveDays,
		MinNoticeDays:      in.MinNoticeDays,
		TrackBalance:       in.LeaveType != TypeUnpaid,
		IsActive:           true,
		Description:        in.Description,
	}
	if in.TrackBalance != nil {
		p.TrackBalance = *in.TrackBalance
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return s.Store.CreatePolicy(ctx, p)
}

func (s *Service) UpdatePolicy(ctx context.Context, id string, in PolicyUpdate) (Policy, error) {
	return s.Store.UpdatePolicy(ctx, id, in)
}

// DefaultPolicies seeds a fresh installation.
func DefaultPolicies() []Policy {
	return []Policy{
		{LeaveType: TypeAnnual, AnnualAllocation: 14, MaxCarryForward: 5, MinNoticeDays: 7, TrackBalance: true, IsActive: true, Description: "Annual vacation leave"},
		{LeaveType: TypeSick, AnnualAllocation: 7, TrackBalance: true, IsActive: true, Description: "Medical leave"},
		{LeaveType: TypeCasual, AnnualAllocation: 7, MaxConsecutiveDays: 2, TrackBalance: true, IsActive: true, Description: "Short personal leave"},
		{LeaveType: TypeMaternity, AnnualAllocation: 84, MinNoticeDays: 14, TrackBalance: true, IsActive: true},
		{LeaveType: TypePaternity, AnnualAllocation: 3, TrackBalance: true, IsActive: true},
		{LeaveType: TypeUnpaid, MinNoticeDays: 3, TrackBalance: false, IsActive: true},
	}
}
