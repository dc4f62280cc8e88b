package leave

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"workpulse/internal/platform/db"
)

const policyColumns = `id, leave_type, annual_allocation, max_carry_forward, max_consecutive_days,
  min_notice_days, track_balance, is_active, description, created_at, updated_at`

func scanPolicy(row interface{ Scan(...any) error }) (Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.LeaveType, &p.AnnualAllocation, &p.MaxCarryForward, &p.MaxConsecutiveDays,
		&p.MinNoticeDays, &p.TrackBalance, &p.IsActive, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return Policy{}, ErrPolicyNotFound
	}
	return p, err
}

func (s *Store) ListPolicies(ctx context.Context, activeOnly bool) ([]Policy, error) {
	query := "SELECT " + policyColumns + " FROM leave_policies"
	if activeOnly {
		query += " WHERE is_active"
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY leave_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies := []Policy{}
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Store) PolicyByType(ctx context.Context, leaveType string) (Policy, error) {
	return scanPolicy(s.DB.QueryRow(ctx, "SELECT "+policyColumns+" FROM leave_policies WHERE leave_type = $1", leaveType))
}

func (s *Store) CreatePolicy(ctx context.Context, p Policy) (Policy, error) {
	created, err := scanPolicy(s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies (leave_type, annual_allocation, max_carry_forward, max_consecutive_days,
      min_notice_days, track_balance, is_active, description)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+policyColumns,
		p.LeaveType, p.AnnualAllocation, p.MaxCarryForward, p.MaxConsecutiveDays,
		p.MinNoticeDays, p.TrackBalance, p.IsActive, p.Description))
	if db.IsUniqueViolation(err) {
		return Policy{}, ErrPolicyExists
	}
	return created, err
}

func (s *Store) UpdatePolicy(ctx context.Context, id string, in PolicyUpdate) (Policy, error) {
	sets := []string{}
	args := []any{id}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if in.AnnualAllocation != nil {
		set("annual_allocation", *in.AnnualAllocation)
	}
	if in.MaxCarryForward != nil {
		set("max_carry_forward", *in.MaxCarryForward)
	}
	if in.MaxConsecutiveDays != nil {
		set("max_consecutive_days", *in.MaxConsecutiveDays)
	}
	if in.MinNoticeDays != nil {
		set("min_notice_days", *in.MinNoticeDays)
	}
	if in.TrackBalance != nil {
		set("track_balance", *in.TrackBalance)
	}
	if in.IsActive != nil {
		set("is_active", *in.IsActive)
	}
	if in.Description != nil {
		set("description", *in.Description)
	}
	sets = append(sets, "updated_at = now()")
	return scanPolicy(s.DB.QueryRow(ctx,
		"UPDATE leave_policies SET "+strings.Join(sets, ", ")+" WHERE id = $1 RETURNING "+policyColumns, args...))
}

const balanceColumns = "id, employee_id, year, entries, created_at, updated_at"

func scanBalance(row interface{ Scan(...any) error }) (Balance, error) {
	var b Balance
	var entries []byte
	err := row.Scan(&b.ID, &b.EmployeeID, &b.Year, &entries, &b.CreatedAt, &b.UpdatedAt)
	if db.IsNoRows(err) {
		return Balance{}, ErrBalanceNotFound
	}
	if err != nil {
		return Balance{}, err
	}
	if err := json.Unmarshal(entries, &b.Entries); err != nil {
		return Balance{}, fmt.Errorf("decode balance entries: %w", err)
	}
	if b.Entries == nil {
		b.Entries = []BalanceEntry{}
	}
	return b, nil
}

func (s *Store) GetBalance(ctx context.Context, employeeID string, year int) (Balance, error) {
	return scanBalance(s.DB.QueryRow(ctx,
		"SELECT "+balanceColumns+" FROM leave_balances WHERE employee_id = $1 AND year = $2", employeeID, year))
}

func (s *Store) CreateBalance(ctx context.Context, b Balance) (Balance, error) {
	b = RecalculateAvailable(b)
	if b.Entries == nil {
		b.Entries = []BalanceEntry{}
	}
	entries, err := json.Marshal(b.Entries)
	if err != nil {
		return Balance{}, err
	}
	created, err := scanBalance(s.DB.QueryRow(ctx, `
    INSERT INTO leave_balances (employee_id, year, entries)
    VALUES ($1,$2,$3)
    RETURNING `+balanceColumns, b.EmployeeID, b.Year, entries))
	if db.IsUniqueViolation(err) {
		return Balance{}, ErrBalanceExists
	}
	return created, err
}

func (s *Store) Profile(ctx context.Context, employeeID string) (Profile, error) {
	var p Profile
	var annual, sick, casual float64
	err := s.DB.QueryRow(ctx, `
    SELECT join_date, annual_leave_allowance, sick_leave_allowance, casual_leave_allowance
    FROM users WHERE id = $1
  `, employeeID).Scan(&p.JoinDate, &annual, &sick, &casual)
	if db.IsNoRows(err) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.Allowances = map[string]float64{TypeAnnual: annual, TypeSick: sick, TypeCasual: casual}
	return p, nil
}

func (s *Store) ActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM users
    WHERE is_active AND employment_status IN ('active','probation')
    ORDER BY employee_id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
