package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workpulse/internal/platform/db"
)

type StoreAPI interface {
	ListUsers(ctx context.Context, filter UserFilter, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id string) (User, error)
	SetActive(ctx context.Context, id string, active bool) (User, error)
	SetRole(ctx context.Context, id, role string) (User, error)
	Stats(ctx context.Context, today time.Time) (SystemStats, error)
}

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const userColumns = `id, employee_id, email, first_name, last_name, department, role,
  employment_status, is_active, is_password_set, mfa_enabled, last_login, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.EmployeeID, &u.Email, &u.FirstName, &u.LastName, &u.Department, &u.Role,
		&u.EmploymentStatus, &u.IsActive, &u.IsPasswordSet, &u.MFAEnabled, &u.LastLogin, &u.CreatedAt)
	if db.IsNoRows(err) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func buildFilter(filter UserFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if filter.Role != "" {
		add("role = $%d", filter.Role)
	}
	if filter.IsActive != nil {
		add("is_active = $%d", *filter.IsActive)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d OR employee_id ILIKE $%[1]d)", "%"+s+"%")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) ListUsers(ctx context.Context, filter UserFilter, limit, offset int) ([]User, int, error) {
	where, args := buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + userColumns + " FROM users" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// SetActive flips is_active. Deactivation revokes every live session in the
// same transaction.
func (s *Store) SetActive(ctx context.Context, id string, active bool) (User, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer db.RollbackQuietly(ctx, tx)

	u, err := scanUser(tx.QueryRow(ctx, `
    UPDATE users SET is_active = $2, updated_at = now()
    WHERE id = $1
    RETURNING `+userColumns, id, active))
	if err != nil {
		return User{}, err
	}
	if !active {
		if _, err := tx.Exec(ctx, `
      UPDATE sessions SET revoked_at = now()
      WHERE user_id = $1 AND revoked_at IS NULL
    `, id); err != nil {
			return User{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) SetRole(ctx context.Context, id, role string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, `
    UPDATE users SET role = $2, updated_at = now()
    WHERE id = $1
    RETURNING `+userColumns, id, role))
}

func (s *Store) Stats(ctx context.Context, today time.Time) (SystemStats, error) {
	out := SystemStats{Users: UserCounts{ByRole: map[string]int{}}}
	rows, err := s.DB.Query(ctx, `
    SELECT role, COUNT(1), COUNT(1) FILTER (WHERE is_active)
    FROM users
    GROUP BY role
  `)
	if err != nil {
		return SystemStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var total, active int
		if err := rows.Scan(&role, &total, &active); err != nil {
			return SystemStats{}, err
		}
		out.Users.ByRole[role] = total
		out.Users.Total += total
		out.Users.Active += active
	}
	if err := rows.Err(); err != nil {
		return SystemStats{}, err
	}
	out.Users.Inactive = out.Users.Total - out.Users.Active

	err = s.DB.QueryRow(ctx, `
    SELECT COUNT(1),
           COUNT(1) FILTER (WHERE check_out_time IS NOT NULL),
           COUNT(1) FILTER (WHERE status = 'late')
    FROM attendance
    WHERE date = $1
  `, today).Scan(&out.Attendance.CheckedIn, &out.Attendance.CheckedOut, &out.Attendance.Late)
	if err != nil {
		return SystemStats{}, err
	}
	err = s.DB.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(1) FROM leaves WHERE status = 'pending'),
      (SELECT COUNT(1) FROM salaries WHERE status = 'pending'),
      (SELECT COUNT(1) FROM schedules WHERE date = $1 AND status <> 'cancelled')
  `, today).Scan(&out.PendingLeaves, &out.PendingSalaries, &out.SchedulesToday)
	if err != nil {
		return SystemStats{}, err
	}
	return out, nil
}
