package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"workpulse/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Employee(ctx context.Context, employeeID string) (EmployeeSnapshot, error) {
	var e EmployeeSnapshot
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, first_name, last_name, department, designation,
           basic_salary, monthly_leave_allowance, employment_status, is_active
    FROM users WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.EmployeeCode, &e.FirstName, &e.LastName, &e.Department, &e.Designation,
		&e.BasicSalary, &e.MonthlyLeaveAllowance, &e.EmploymentStatus, &e.IsActive)
	if db.IsNoRows(err) {
		return EmployeeSnapshot{}, ErrEmployeeNotFound
	}
	return e, err
}

func (s *Store) ApprovedLeaves(ctx context.Context, employeeID string, from, to time.Time) ([]LeaveWindow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT start_date, end_date, is_half_day
    FROM leaves
    WHERE employee_id = $1 AND status = 'approved' AND start_date <= $3 AND end_date >= $2
    ORDER BY start_date
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveWindow
	for rows.Next() {
		var w LeaveWindow
		if err := rows.Scan(&w.Start, &w.End, &w.IsHalfDay); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) OvertimeHours(ctx context.Context, employeeID string, from, to time.Time) (float64, error) {
	var hours float64
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(overtime), 0)::float8
    FROM schedules
    WHERE employee_id = $1 AND date BETWEEN $2 AND $3 AND status <> 'cancelled'
  `, employeeID, from, to).Scan(&hours)
	return hours, err
}

func (s *Store) Exists(ctx context.Context, employeeID string, month, year int) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM salaries WHERE employee_id = $1 AND month = $2 AND year = $3)
  `, employeeID, month, year).Scan(&exists)
	return exists, err
}

const salaryColumns = `id, employee_id, employee_code, employee_name, department, designation, month, year,
  basic_salary, allowances, deductions, employer_contributions, working_days,
  total_leave_days, paid_leave_days, no_pay_leave_days, overtime_hours, overtime_pay,
  bonus, reimbursements, gross_salary, net_payable_salary, status,
  created_by, approved_by, approved_at, paid_at, created_at, updated_at`

func scanSalary(row interface{ Scan(...any) error }) (Salary, error) {
	var s Salary
	var allowances, deductions, contributions []byte
	err := row.Scan(&s.ID, &s.EmployeeID, &s.EmployeeCode, &s.EmployeeName, &s.Department, &s.Designation, &s.Month, &s.Year,
		&s.BasicSalary, &allowances, &deductions, &contributions, &s.WorkingDays,
		&s.TotalLeaveDaysTaken, &s.PaidLeaveDays, &s.NoPayLeaveDays, &s.OvertimeHours, &s.OvertimePay,
		&s.Bonus, &s.Reimbursements, &s.GrossSalary, &s.NetPayableSalary, &s.Status,
		&s.CreatedBy, &s.ApprovedBy, &s.ApprovedAt, &s.PaidAt, &s.CreatedAt, &s.UpdatedAt)
	if db.IsNoRows(err) {
		return Salary{}, ErrNotFound
	}
	if err != nil {
		return Salary{}, err
	}
	if err := json.Unmarshal(allowances, &s.Allowances); err != nil {
		return Salary{}, fmt.Errorf("decode allowances: %w", err)
	}
	if err := json.Unmarshal(deductions, &s.Deductions); err != nil {
		return Salary{}, fmt.Errorf("decode deductions: %w", err)
	}
	if err := json.Unmarshal(contributions, &s.EmployerContributions); err != nil {
		return Salary{}, fmt.Errorf("decode employer contributions: %w", err)
	}
	return s, nil
}

func marshalComponents(s Salary) (allowances, deductions, contributions []byte, err error) {
	if allowances, err = json.Marshal(s.Allowances); err != nil {
		return nil, nil, nil, err
	}
	if deductions, err = json.Marshal(s.Deductions); err != nil {
		return nil, nil, nil, err
	}
	if contributions, err = json.Marshal(s.EmployerContributions); err != nil {
		return nil, nil, nil, err
	}
	return allowances, deductions, contributions, nil
}

// Create inserts s after recomputing its totals. The (employee, month, year)
// unique index rejects duplicates, including concurrent ones.
func (s *Store) Create(ctx context.Context, sal Salary) (Salary, error) {
	sal = RecalculateTotals(sal)
	allowances, deductions, contributions, err := marshalComponents(sal)
	if err != nil {
		return Salary{}, err
	}
	created, err := scanSalary(s.DB.QueryRow(ctx, `
    INSERT INTO salaries (employee_id, employee_code, employee_name, department, designation, month, year,
      basic_salary, allowances, deductions, employer_contributions, working_days,
      total_leave_days, paid_leave_days, no_pay_leave_days, overtime_hours, overtime_pay,
      bonus, reimbursements, gross_salary, net_payable_salary, status, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
    RETURNING `+salaryColumns,
		sal.EmployeeID, sal.EmployeeCode, sal.EmployeeName, sal.Department, sal.Designation, sal.Month, sal.Year,
		sal.BasicSalary, allowances, deductions, contributions, sal.WorkingDays,
		sal.TotalLeaveDaysTaken, sal.PaidLeaveDays, sal.NoPayLeaveDays, sal.OvertimeHours, sal.OvertimePay,
		sal.Bonus, sal.Reimbursements, sal.GrossSalary, sal.NetPayableSalary, StatusPending, sal.CreatedBy))
	if db.IsUniqueViolation(err) {
		return Salary{}, ErrDuplicate
	}
	return created, err
}

func (s *Store) Get(ctx context.Context, id string) (Salary, error) {
	return scanSalary(s.DB.QueryRow(ctx, "SELECT "+salaryColumns+" FROM salaries WHERE id = $1", id))
}

func buildFilter(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if filter.Department != "" {
		add("department = $%d", filter.Department)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Month != 0 {
		add("month = $%d", filter.Month)
	}
	if filter.Year != 0 {
		add("year = $%d", filter.Year)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns a page of salaries. A non-positive limit returns every match.
func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Salary, int, error) {
	where, args := buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM salaries"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + salaryColumns + " FROM salaries" + where + " ORDER BY year DESC, month DESC, employee_code"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Salary{}
	for rows.Next() {
		sal, err := scanSalary(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sal)
	}
	return out, total, rows.Err()
}

func (s *Store) SaveAdjustments(ctx context.Context, sal Salary) (Salary, error) {
	sal = RecalculateTotals(sal)
	allowances, deductions, contributions, err := marshalComponents(sal)
	if err != nil {
		return Salary{}, err
	}
	updated, err := scanSalary(s.DB.QueryRow(ctx, `
    UPDATE salaries SET allowances = $2, deductions = $3, employer_contributions = $4,
      overtime_hours = $5, overtime_pay = $6, bonus = $7, reimbursements = $8,
      gross_salary = $9, net_payable_salary = $10, updated_at = now()
    WHERE id = $1 AND status = 'pending'
    RETURNING `+salaryColumns,
		sal.ID, allowances, deductions, contributions, sal.OvertimeHours, sal.OvertimePay,
		sal.Bonus, sal.Reimbursements, sal.GrossSalary, sal.NetPayableSalary))
	if errors.Is(err, ErrNotFound) {
		return Salary{}, s.missingOr(ctx, sal.ID, ErrNotPending)
	}
	return updated, err
}

func (s *Store) Approve(ctx context.Context, id, approverID string, at time.Time) (Salary, error) {
	sal, err := scanSalary(s.DB.QueryRow(ctx, `
    UPDATE salaries SET status = 'approved', approved_by = $2, approved_at = $3, updated_at = now()
    WHERE id = $1 AND status = 'pending'
    RETURNING `+salaryColumns, id, approverID, at))
	if errors.Is(err, ErrNotFound) {
		return Salary{}, s.missingOr(ctx, id, ErrInvalidTransition)
	}
	return sal, err
}

func (s *Store) MarkPaid(ctx context.Context, id string, at time.Time) (Salary, error) {
	sal, err := scanSalary(s.DB.QueryRow(ctx, `
    UPDATE salaries SET status = 'paid', paid_at = $2, updated_at = now()
    WHERE id = $1 AND status = 'approved'
    RETURNING `+salaryColumns, id, at))
	if errors.Is(err, ErrNotFound) {
		return Salary{}, s.missingOr(ctx, id, ErrInvalidTransition)
	}
	return sal, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM salaries WHERE id = $1 AND status = 'pending'", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.missingOr(ctx, id, ErrNotPending)
	}
	return nil
}

// missingOr distinguishes a missing salary from one in the wrong state after a
// conditional write matched no rows.
func (s *Store) missingOr(ctx context.Context, id string, stateErr error) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return stateErr
}
