package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"workpulse/internal/platform/db"
)

const swapColumns = "id, requester_id, schedule_id, target_schedule_id, reason, status, reviewed_by, reviewed_at, created_at"

func scanSwap(row interface{ Scan(...any) error }) (SwapRequest, error) {
	var r SwapRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.ScheduleID, &r.TargetScheduleID, &r.Reason, &r.Status,
		&r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt)
	if db.IsNoRows(err) {
		return SwapRequest{}, ErrSwapNotFound
	}
	return r, err
}

func (s *Store) CreateSwap(ctx context.Context, req SwapRequest) (SwapRequest, error) {
	return scanSwap(s.DB.QueryRow(ctx, `
    INSERT INTO shift_swap_requests (requester_id, schedule_id, target_schedule_id, reason)
    VALUES ($1,$2,$3,$4)
    RETURNING `+swapColumns, req.RequesterID, req.ScheduleID, req.TargetScheduleID, req.Reason))
}

func (s *Store) GetSwap(ctx context.Context, id string) (SwapRequest, error) {
	return scanSwap(s.DB.QueryRow(ctx, "SELECT "+swapColumns+" FROM shift_swap_requests WHERE id = $1", id))
}

func (s *Store) ListSwaps(ctx context.Context, filter SwapFilter, limit, offset int) ([]SwapRequest, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM shift_swap_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + swapColumns + " FROM shift_swap_requests" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []SwapRequest{}
	for rows.Next() {
		r, err := scanSwap(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

type lockedSchedule struct {
	ID         string
	EmployeeID string
	ShiftID    string
	Date       time.Time
	StartTime  string
	EndTime    string
	Status     string
}

func lockSchedule(ctx context.Context, tx pgx.Tx, id string) (lockedSchedule, error) {
	var l lockedSchedule
	err := tx.QueryRow(ctx, `
    SELECT id, employee_id, shift_id, date, start_time, end_time, status
    FROM schedules WHERE id = $1 FOR UPDATE
  `, id).Scan(&l.ID, &l.EmployeeID, &l.ShiftID, &l.Date, &l.StartTime, &l.EndTime, &l.Status)
	if db.IsNoRows(err) {
		return lockedSchedule{}, ErrNotFound
	}
	return l, err
}

func hasOtherActive(ctx context.Context, tx pgx.Tx, employeeID string, date time.Time, excludeID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM schedules
      WHERE employee_id = $1 AND date = $2 AND id <> $3 AND status IN ('scheduled','in_progress')
    )
  `, employeeID, date, excludeID).Scan(&exists)
	return exists, err
}

// ApproveSwap exchanges the two assignments of a pending request. Same-day
// swaps trade shift windows; cross-day swaps trade employees and fail with
// ErrConflict if either employee is already booked on the other day.
func (s *Store) ApproveSwap(ctx context.Context, id, reviewerID string, at time.Time) (SwapRequest, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return SwapRequest{}, err
	}
	defer db.RollbackQuietly(ctx, tx)

	req, err := scanSwap(tx.QueryRow(ctx, "SELECT "+swapColumns+" FROM shift_swap_requests WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return SwapRequest{}, err
	}
	if req.Status != SwapPending {
		return SwapRequest{}, ErrSwapNotPending
	}
	source, err := lockSchedule(ctx, tx, req.ScheduleID)
	if err != nil {
		return SwapRequest{}, err
	}
	target, err := lockSchedule(ctx, tx, req.TargetScheduleID)
	if err != nil {
		return SwapRequest{}, err
	}
	if source.Status != StatusScheduled || target.Status != StatusScheduled {
		return SwapRequest{}, ErrSwapInactive
	}

	if source.Date.Equal(target.Date) {
		swap := `UPDATE schedules SET shift_id = $2, start_time = $3, end_time = $4, updated_at = now() WHERE id = $1`
		if _, err := tx.Exec(ctx, swap, source.ID, target.ShiftID, target.StartTime, target.EndTime); err != nil {
			return SwapRequest{}, err
		}
		if _, err := tx.Exec(ctx, swap, target.ID, source.ShiftID, source.StartTime, source.EndTime); err != nil {
			return SwapRequest{}, err
		}
	} else {
		for _, check := range []struct {
			employeeID string
			date       time.Time
			exclude    string
		}{
			{source.EmployeeID, target.Date, target.ID},
			{target.EmployeeID, source.Date, source.ID},
		} {
			busy, err := hasOtherActive(ctx, tx, check.employeeID, check.date, check.exclude)
			if err != nil {
				return SwapRequest{}, err
			}
			if busy {
				return SwapRequest{}, ErrConflict
			}
		}
		reassign := `UPDATE schedules SET employee_id = $2, updated_at = now() WHERE id = $1`
		if _, err := tx.Exec(ctx, reassign, source.ID, target.EmployeeID); err != nil {
			if db.IsUniqueViolation(err) {
				return SwapRequest{}, ErrConflict
			}
			return SwapRequest{}, err
		}
		if _, err := tx.Exec(ctx, reassign, target.ID, source.EmployeeID); err != nil {
			if db.IsUniqueViolation(err) {
				return SwapRequest{}, ErrConflict
			}
			return SwapRequest{}, err
		}
	}

	approved, err := scanSwap(tx.QueryRow(ctx, `
    UPDATE shift_swap_requests SET status = $2, reviewed_by = $3, reviewed_at = $4
    WHERE id = $1
    RETURNING `+swapColumns, id, SwapApproved, reviewerID, at))
	if err != nil {
		return SwapRequest{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return SwapRequest{}, err
	}
	return approved, nil
}

// CloseSwap rejects or cancels a request that is still pending.
func (s *Store) CloseSwap(ctx context.Context, id, status string, reviewerID *string, at time.Time) (SwapRequest, error) {
	req, err := scanSwap(s.DB.QueryRow(ctx, `
    UPDATE shift_swap_requests SET status = $2, reviewed_by = $3, reviewed_at = $4
    WHERE id = $1 AND status = 'pending'
    RETURNING `+swapColumns, id, status, reviewerID, at))
	if errors.Is(err, ErrSwapNotFound) {
		if _, getErr := s.GetSwap(ctx, id); getErr != nil {
			return SwapRequest{}, getErr
		}
		return SwapRequest{}, ErrSwapNotPending
	}
	return req, err
}
