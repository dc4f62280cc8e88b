package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"workpulse/internal/platform/db"
)

type StoreAPI interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	GetByUserDate(ctx context.Context, userID string, date time.Time) (Record, error)
	Save(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error)
	Stats(ctx context.Context, filter Filter) (Stats, error)
}

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const recordColumns = `a.id, a.user_id, a.date,
  a.check_in_time, a.check_in_location, a.check_in_method,
  a.check_out_time, a.check_out_location, a.check_out_method,
  a.breaks, a.work_hours, a.overtime, a.status, a.notes, a.created_at, a.updated_at,
  u.employee_id, u.first_name, u.last_name, u.department`

const recordFrom = " FROM attendance a JOIN users u ON u.id = a.user_id"

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var r Record
	var breaks []byte
	ref := EmployeeRef{}
	err := row.Scan(&r.ID, &r.UserID, &r.Date,
		&r.CheckIn.Time, &r.CheckIn.Location, &r.CheckIn.Method,
		&r.CheckOut.Time, &r.CheckOut.Location, &r.CheckOut.Method,
		&breaks, &r.WorkHours, &r.Overtime, &r.Status, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
		&ref.EmployeeID, &ref.FirstName, &ref.LastName, &ref.Department)
	if db.IsNoRows(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(breaks, &r.Breaks); err != nil {
		return Record{}, fmt.Errorf("decode breaks: %w", err)
	}
	if r.Breaks == nil {
		r.Breaks = []Break{}
	}
	r.Employee = &ref
	return r, nil
}

func marshalBreaks(breaks []Break) ([]byte, error) {
	if breaks == nil {
		breaks = []Break{}
	}
	return json.Marshal(breaks)
}

func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	breaks, err := marshalBreaks(rec.Breaks)
	if err != nil {
		return Record{}, err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO attendance (user_id, date, check_in_time, check_in_location, check_in_method, breaks, work_hours, overtime, status, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, rec.UserID, rec.Date, rec.CheckIn.Time, rec.CheckIn.Location, rec.CheckIn.Method, breaks, rec.WorkHours, rec.Overtime, rec.Status, rec.Notes).Scan(&id)
	if db.IsUniqueViolation(err) {
		return Record{}, ErrAlreadyCheckedIn
	}
	if err != nil {
		return Record{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, "SELECT "+recordColumns+recordFrom+" WHERE a.id = $1", id))
}

func (s *Store) GetByUserDate(ctx context.Context, userID string, date time.Time) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, "SELECT "+recordColumns+recordFrom+" WHERE a.user_id = $1 AND a.date = $2", userID, date))
}

func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	breaks, err := marshalBreaks(rec.Breaks)
	if err != nil {
		return Record{}, err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE attendance SET
      check_in_time = $2, check_in_location = $3, check_in_method = $4,
      check_out_time = $5, check_out_location = $6, check_out_method = $7,
      breaks = $8, work_hours = $9, overtime = $10, status = $11, notes = $12,
      updated_at = now()
    WHERE id = $1
  `, rec.ID, rec.CheckIn.Time, rec.CheckIn.Location, rec.CheckIn.Method,
		rec.CheckOut.Time, rec.CheckOut.Location, rec.CheckOut.Method,
		breaks, rec.WorkHours, rec.Overtime, rec.Status, rec.Notes)
	if err != nil {
		return Record{}, err
	}
	if tag.RowsAffected() == 0 {
		return Record{}, ErrNotFound
	}
	return s.Get(ctx, rec.ID)
}

func buildFilter(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if filter.UserID != "" {
		add("a.user_id = $%d", filter.UserID)
	}
	if filter.Department != "" {
		add("u.department = $%d", filter.Department)
	}
	if filter.Status != "" {
		add("a.status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add("a.date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("a.date <= $%d", filter.To)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
	where, args := buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1)"+recordFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + recordColumns + recordFrom + where +
		fmt.Sprintf(" ORDER BY a.date DESC, u.employee_id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (s *Store) Stats(ctx context.Context, filter Filter) (Stats, error) {
	where, args := buildFilter(filter)
	var out Stats
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1),
           COUNT(1) FILTER (WHERE a.status = 'present'),
           COUNT(1) FILTER (WHERE a.status = 'late'),
           COUNT(1) FILTER (WHERE a.status = 'half_day'),
           COUNT(1) FILTER (WHERE a.status = 'absent'),
           COALESCE(SUM(a.work_hours), 0),
           COALESCE(SUM(a.overtime), 0),
           COALESCE(AVG(a.work_hours) FILTER (WHERE a.check_out_time IS NOT NULL), 0)::float8
  `+recordFrom+where, args...).Scan(&out.TotalRecords, &out.Present, &out.Late, &out.HalfDay, &out.Absent,
		&out.TotalWorkMinutes, &out.TotalOvertime, &out.AverageWorkMinute)
	if err != nil {
		return Stats{}, err
	}
	return out, nil
}
