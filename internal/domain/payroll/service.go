package payroll

import (
	"context"
	"time"
)

type Service struct {
	Store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Now: time.Now}
}

// Calculate returns the salary breakdown for in without persisting it.
func (s *Service) Calculate(ctx context.Context, in CalculateInput) (Salary, error) {
	emp, err := s.Store.Employee(ctx, in.EmployeeID)
	if err != nil {
		return Salary{}, err
	}
	if !emp.Payable() {
		return Salary{}, ErrEmployeeInactive
	}
	exists, err := s.Store.Exists(ctx, in.EmployeeID, in.Month, in.Year)
	if err != nil {
		return Salary{}, err
	}
	if exists {
		return Salary{}, ErrDuplicate
	}

	month := time.Month(in.Month)
	from, to := monthStart(in.Year, month), monthEnd(in.Year, month)
	leaves, err := s.Store.ApprovedLeaves(ctx, in.EmployeeID, from, to)
	if err != nil {
		return Salary{}, err
	}
	overtime, err := s.Store.OvertimeHours(ctx, in.EmployeeID, from, to)
	if err != nil {
		return Salary{}, err
	}
	return Compute(emp, in.Month, in.Year, leaves, overtime, in), nil
}

// Create recomputes and stores a pending salary.
func (s *Service) Create(ctx context.Context, actorID string, in CalculateInput) (Salary, error) {
	sal, err := s.Calculate(ctx, in)
	if err != nil {
		return Salary{}, err
	}
	if actorID != "" {
		sal.CreatedBy = &actorID
	}
	return s.Store.Create(ctx, sal)
}

func (s *Service) Get(ctx context.Context, id string) (Salary, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Salary, int, error) {
	return s.Store.List(ctx, filter, limit, offset)
}

// Register returns every salary matching filter for export.
func (s *Service) Register(ctx context.Context, filter Filter) ([]Salary, error) {
	rows, _, err := s.Store.List(ctx, filter, 0, 0)
	return rows, err
}

func (s *Service) Update(ctx context.Context, id string, in Adjustments) (Salary, error) {
	sal, err := s.Store.Get(ctx, id)
	if err != nil {
		return Salary{}, err
	}
	if sal.Status != StatusPending {
		return Salary{}, ErrNotPending
	}
	if in.Bonus != nil {
		sal.Bonus = *in.Bonus
	}
	if in.Reimbursements != nil {
		sal.Reimbursements = *in.Reimbursements
	}
	if in.APIT != nil {
		sal.Deductions.APIT = *in.APIT
	}
	if in.SalaryAdvance != nil {
		sal.Deductions.SalaryAdvance = *in.SalaryAdvance
	}
	if in.OvertimeHours != nil {
		sal.OvertimeHours = *in.OvertimeHours
	}
	return s.Store.SaveAdjustments(ctx, RecalculateTotals(sal))
}

func (s *Service) Approve(ctx context.Context, id, approverID string) (Salary, error) {
	return s.Store.Approve(ctx, id, approverID, s.Now().UTC())
}

func (s *Service) MarkPaid(ctx context.Context, id string) (Salary, error) {
	return s.Store.MarkPaid(ctx, id, s.Now().UTC())
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}
