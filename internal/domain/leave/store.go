package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"workpulse/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const leaveColumns = `l.id, l.employee_id, l.leave_type, l.start_date, l.end_date, l.is_half_day,
  l.half_day_period, l.total_days, l.reason, l.status, l.reviewed_by, l.reviewed_at,
  l.rejection_reason, l.created_at, l.updated_at,
  u.employee_id, u.first_name, u.last_name, u.department`

const leaveFrom = " FROM leaves l JOIN users u ON u.id = l.employee_id"

func scanLeave(row interface{ Scan(...any) error }) (Leave, error) {
	var l Leave
	ref := EmployeeRef{}
	err := row.Scan(&l.ID, &l.EmployeeID, &l.LeaveType, &l.StartDate, &l.EndDate, &l.IsHalfDay,
		&l.HalfDayPeriod, &l.TotalDays, &l.Reason, &l.Status, &l.ReviewedBy, &l.ReviewedAt,
		&l.RejectionReason, &l.CreatedAt, &l.UpdatedAt,
		&ref.EmployeeID, &ref.FirstName, &ref.LastName, &ref.Department)
	if db.IsNoRows(err) {
		return Leave{}, ErrNotFound
	}
	if err != nil {
		return Leave{}, err
	}
	l.Employee = &ref
	return l, nil
}

func getLeave(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, id string, lock bool) (Leave, error) {
	query := "SELECT " + leaveColumns + leaveFrom + " WHERE l.id = $1"
	if lock {
		query += " FOR UPDATE OF l"
	}
	return scanLeave(q.QueryRow(ctx, query, id))
}

func (s *Store) Get(ctx context.Context, id string) (Leave, error) {
	return getLeave(ctx, s.DB, id, false)
}

func buildFilter(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if filter.EmployeeID != "" {
		add("l.employee_id = $%d", filter.EmployeeID)
	}
	if filter.Status != "" {
		add("l.status = $%d", filter.Status)
	}
	if filter.LeaveType != "" {
		add("l.leave_type = $%d", filter.LeaveType)
	}
	if !filter.From.IsZero() {
		add("l.end_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("l.start_date <= $%d", filter.To)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns a page of leaves, newest first. A limit of zero returns all.
func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Leave, int, error) {
	where, args := buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1)"+leaveFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + leaveColumns + leaveFrom + where + " ORDER BY l.created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Leave{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (s *Store) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leaves
      WHERE employee_id = $1 AND status IN ('pending','approved')
        AND start_date <= $3 AND end_date >= $2
    )
  `, employeeID, start, end).Scan(&exists)
	return exists, err
}

// CreateWithBalance inserts l and, when its type is tracked in the start year's
// balance, reserves the days as pending in the same transaction.
func (s *Store) CreateWithBalance(ctx context.Context, l Leave) (Leave, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Leave{}, err
	}
	defer db.RollbackQuietly(ctx, tx)

	err = updateBalanceTx(ctx, tx, l.EmployeeID, l.StartDate.Year(), func(b *Balance) error {
		entry := b.Entry(l.LeaveType)
		if entry == nil {
			return nil
		}
		if entry.Available < l.TotalDays {
			return ErrInsufficientBalance
		}
		entry.Pending += l.TotalDays
		return nil
	})
	if err != nil {
		return Leave{}, err
	}

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO leaves (employee_id, leave_type, start_date, end_date, is_half_day, half_day_period, total_days, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, l.EmployeeID, l.LeaveType, l.StartDate, l.EndDate, l.IsHalfDay, l.HalfDayPeriod, l.TotalDays, l.Reason, StatusPending).Scan(&id)
	if db.IsCheckViolation(err) {
		return Leave{}, ErrInvalidRange
	}
	if err != nil {
		return Leave{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Leave{}, err
	}
	return s.Get(ctx, id)
}

// ReviewWithBalance approves or rejects a pending leave and settles its
// pending days in one transaction.
func (s *Store) ReviewWithBalance(ctx context.Context, id string, review Review) (Leave, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Leave{}, err
	}
	defer db.RollbackQuietly(ctx, tx)

	l, err := getLeave(ctx, tx, id, true)
	if err != nil {
		return Leave{}, err
	}
	if l.Status != StatusPending {
		return Leave{}, ErrNotPending
	}
	if _, err := tx.Exec(ctx, `
    UPDATE leaves SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5, updated_at = now()
    WHERE id = $1
  `, id, review.Status, review.ReviewerID, review.At, review.RejectionReason); err != nil {
		return Leave{}, err
	}
	err = updateBalanceTx(ctx, tx, l.EmployeeID, l.StartDate.Year(), func(b *Balance) error {
		if entry := b.Entry(l.LeaveType); entry != nil {
			ApplyReview(entry, l.TotalDays, review.Status == StatusApproved)
		}
		return nil
	})
	if err != nil {
		return Leave{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Leave{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) CancelWithBalance(ctx context.Context, id string, today time.Time) (Leave, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Leave{}, err
	}
	defer db.RollbackQuietly(ctx, tx)

	l, err := getLeave(ctx, tx, id, true)
	if err != nil {
		return Leave{}, err
	}
	if !Cancellable(l, today) {
		return Leave{}, ErrNotCancellable
	}
	if _, err := tx.Exec(ctx, "UPDATE leaves SET status = $2, updated_at = now() WHERE id = $1", id, StatusCancelled); err != nil {
		return Leave{}, err
	}
	err = updateBalanceTx(ctx, tx, l.EmployeeID, l.StartDate.Year(), func(b *Balance) error {
		if entry := b.Entry(l.LeaveType); entry != nil {
			ReleaseCancelled(entry, l.TotalDays, l.Status)
		}
		return nil
	})
	if err != nil {
		return Leave{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Leave{}, err
	}
	return s.Get(ctx, id)
}

// updateBalanceTx locks the (employee, year) balance, applies mutate and saves
// it with recalculated availability. A missing balance row is left alone.
func updateBalanceTx(ctx context.Context, tx pgx.Tx, employeeID string, year int, mutate func(*Balance) error) error {
	b, err := scanBalance(tx.QueryRow(ctx, "SELECT "+balanceColumns+" FROM leave_balances WHERE employee_id = $1 AND year = $2 FOR UPDATE", employeeID, year))
	if errors.Is(err, ErrBalanceNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := mutate(&b); err != nil {
		return err
	}
	b = RecalculateAvailable(b)
	entries, err := json.Marshal(b.Entries)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "UPDATE leave_balances SET entries = $2, updated_at = now() WHERE id = $1", b.ID, entries)
	return err
}
