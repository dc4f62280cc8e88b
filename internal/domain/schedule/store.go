package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workpulse/internal/platform/db"
)

type StoreAPI interface {
	ListShifts(ctx context.Context, activeOnly bool) ([]Shift, error)
	GetShift(ctx context.Context, id string) (Shift, error)
	CreateShift(ctx context.Context, s Shift) (Shift, error)
	UpdateShift(ctx context.Context, id string, s Shift) (Shift, error)
	DeleteShift(ctx context.Context, id string) error

	Create(ctx context.Context, sch Schedule) (Schedule, error)
	Get(ctx context.Context, id string) (Schedule, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Schedule, int, error)
	Save(ctx context.Context, sch Schedule) (Schedule, error)
	Delete(ctx context.Context, id string) error
	ActiveDates(ctx context.Context, employeeID string, from, to time.Time, excludeID string) (map[string]bool, error)
	Stats(ctx context.Context, filter Filter) (Stats, error)

	CreateSwap(ctx context.Context, req SwapRequest) (SwapRequest, error)
	GetSwap(ctx context.Context, id string) (SwapRequest, error)
	ListSwaps(ctx context.Context, filter SwapFilter, limit, offset int) ([]SwapRequest, int, error)
	ApproveSwap(ctx context.Context, id, reviewerID string, at time.Time) (SwapRequest, error)
	CloseSwap(ctx context.Context, id, status string, reviewerID *string, at time.Time) (SwapRequest, error)
}

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const shiftColumns = "id, name, start_time, end_time, break_minutes, crosses_midnight, is_active, description, created_at, updated_at"

func scanShift(row interface{ Scan(...any) error }) (Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.BreakMinutes, &s.CrossesMidnight,
		&s.IsActive, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if db.IsNoRows(err) {
		return Shift{}, ErrShiftNotFound
	}
	return s, err
}

func (s *Store) ListShifts(ctx context.Context, activeOnly bool) ([]Shift, error) {
	query := "SELECT " + shiftColumns + " FROM shifts"
	if activeOnly {
		query += " WHERE is_active"
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY start_time, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Shift{}
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) GetShift(ctx context.Context, id string) (Shift, error) {
	return scanShift(s.DB.QueryRow(ctx, "SELECT "+shiftColumns+" FROM shifts WHERE id = $1", id))
}

func (s *Store) CreateShift(ctx context.Context, sh Shift) (Shift, error) {
	created, err := scanShift(s.DB.QueryRow(ctx, `
    INSERT INTO shifts (name, start_time, end_time, break_minutes, crosses_midnight, is_active, description)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING `+shiftColumns, sh.Name, sh.StartTime, sh.EndTime, sh.BreakMinutes, sh.CrossesMidnight, sh.IsActive, sh.Description))
	if db.IsUniqueViolation(err) {
		return Shift{}, ErrShiftExists
	}
	return created, err
}

func (s *Store) UpdateShift(ctx context.Context, id string, sh Shift) (Shift, error) {
	updated, err := scanShift(s.DB.QueryRow(ctx, `
    UPDATE shifts SET name = $2, start_time = $3, end_time = $4, break_minutes = $5,
      crosses_midnight = $6, is_active = $7, description = $8, updated_at = now()
    WHERE id = $1
    RETURNING `+shiftColumns, id, sh.Name, sh.StartTime, sh.EndTime, sh.BreakMinutes, sh.CrossesMidnight, sh.IsActive, sh.Description))
	if db.IsUniqueViolation(err) {
		return Shift{}, ErrShiftExists
	}
	return updated, err
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM shifts WHERE id = $1", id)
	if db.IsForeignKeyViolation(err) {
		return ErrShiftInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

const scheduleColumns = `s.id, s.employee_id, s.shift_id, sh.name, s.date, s.start_time, s.end_time,
  s.status, s.overtime, s.notes, s.created_by, s.created_at, s.updated_at,
  u.employee_id, u.first_name, u.last_name, u.department`

const scheduleFrom = ` FROM schedules s
  JOIN shifts sh ON sh.id = s.shift_id
  JOIN users u ON u.id = s.employee_id`

func scanSchedule(row interface{ Scan(...any) error }) (Schedule, error) {
	var sch Schedule
	ref := EmployeeRef{}
	err := row.Scan(&sch.ID, &sch.EmployeeID, &sch.ShiftID, &sch.ShiftName, &sch.Date, &sch.StartTime, &sch.EndTime,
		&sch.Status, &sch.Overtime, &sch.Notes, &sch.CreatedBy, &sch.CreatedAt, &sch.UpdatedAt,
		&ref.EmployeeID, &ref.FirstName, &ref.LastName, &ref.Department)
	if db.IsNoRows(err) {
		return Schedule{}, ErrNotFound
	}
	if err != nil {
		return Schedule{}, err
	}
	sch.Employee = &ref
	return sch, nil
}

// Create inserts sch. The partial unique index on active schedules turns a
// concurrent double booking into ErrConflict.
func (s *Store) Create(ctx context.Context, sch Schedule) (Schedule, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO schedules (employee_id, shift_id, date, start_time, end_time, status, overtime, notes, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, sch.EmployeeID, sch.ShiftID, sch.Date, sch.StartTime, sch.EndTime, sch.Status, sch.Overtime, sch.Notes, sch.CreatedBy).Scan(&id)
	if db.IsUniqueViolation(err) {
		return Schedule{}, ErrConflict
	}
	if db.IsForeignKeyViolation(err) {
		return Schedule{}, ErrNotFound
	}
	if err != nil {
		return Schedule{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id string) (Schedule, error) {
	return scanSchedule(s.DB.QueryRow(ctx, "SELECT "+scheduleColumns+scheduleFrom+" WHERE s.id = $1", id))
}

func buildFilter(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if filter.EmployeeID != "" {
		add("s.employee_id = $%d", filter.EmployeeID)
	}
	if filter.ShiftID != "" {
		add("s.shift_id = $%d", filter.ShiftID)
	}
	if filter.Status != "" {
		add("s.status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add("s.date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("s.date <= $%d", filter.To)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Schedule, int, error) {
	where, args := buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1)"+scheduleFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + scheduleColumns + scheduleFrom + where +
		fmt.Sprintf(" ORDER BY s.date, s.start_time, u.employee_id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Schedule{}
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sch)
	}
	return out, total, rows.Err()
}

func (s *Store) Save(ctx context.Context, sch Schedule) (Schedule, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE schedules SET shift_id = $2, start_time = $3, end_time = $4, status = $5,
      overtime = $6, notes = $7, updated_at = now()
    WHERE id = $1
  `, sch.ID, sch.ShiftID, sch.StartTime, sch.EndTime, sch.Status, sch.Overtime, sch.Notes)
	if db.IsUniqueViolation(err) {
		return Schedule{}, ErrConflict
	}
	if err != nil {
		return Schedule{}, err
	}
	if tag.RowsAffected() == 0 {
		return Schedule{}, ErrNotFound
	}
	return s.Get(ctx, sch.ID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveDates returns the dates in [from, to] on which the employee already has
// a scheduled or in-progress assignment, keyed as YYYY-MM-DD.
func (s *Store) ActiveDates(ctx context.Context, employeeID string, from, to time.Time, excludeID string) (map[string]bool, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT date FROM schedules
    WHERE employee_id = $1 AND date BETWEEN $2 AND $3
      AND status IN ('scheduled','in_progress')
      AND ($4 = '' OR id::text <> $4)
  `, employeeID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		taken[d.Format(dateLayout)] = true
	}
	return taken, rows.Err()
}

func (s *Store) Stats(ctx context.Context, filter Filter) (Stats, error) {
	where, args := buildFilter(filter)
	rows, err := s.DB.Query(ctx, "SELECT s.status, COUNT(1), COALESCE(SUM(s.overtime), 0)::float8"+scheduleFrom+where+" GROUP BY s.status", args...)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	out := Stats{ByStatus: map[string]int{}}
	for _, st := range Statuses {
		out.ByStatus[st] = 0
	}
	for rows.Next() {
		var status string
		var count int
		var overtime float64
		if err := rows.Scan(&status, &count, &overtime); err != nil {
			return Stats{}, err
		}
		out.ByStatus[status] = count
		out.Total += count
		if status != StatusCancelled {
			out.TotalOvertimeHours += overtime
		}
	}
	return out, rows.Err()
}
