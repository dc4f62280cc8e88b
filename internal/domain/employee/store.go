package employee

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workpulse/internal/platform/db"
)

type StoreAPI interface {
	List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, int, error)
	Get(ctx context.Context, id string) (Employee, error)
	Create(ctx context.Context, rec NewRecord) (Employee, error)
	Update(ctx context.Context, id string, in UpdateInput, joinDate *time.Time) (Employee, error)
	UpdateSalary(ctx context.Context, id string, in SalaryUpdate, bankAccountEnc []byte) (Employee, error)
	SetPassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
	NextEmployeeID(ctx context.Context) (string, error)
}

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const employeeColumns = `id, employee_id, email, first_name, last_name, phone, department, designation, role,
  join_date, employment_status, is_active, is_password_set,
  basic_salary, salary_grade, epf_number, bank_name, bank_account_enc, bank_branch,
  monthly_leave_allowance, annual_leave_allowance, sick_leave_allowance, casual_leave_allowance,
  last_login, created_at, updated_at`

func scanEmployee(row interface{ Scan(...any) error }) (Employee, error) {
	var e Employee
	comp := Compensation{}
	err := row.Scan(&e.ID, &e.EmployeeID, &e.Email, &e.FirstName, &e.LastName, &e.Phone, &e.Department, &e.Designation, &e.Role,
		&e.JoinDate, &e.EmploymentStatus, &e.IsActive, &e.IsPasswordSet,
		&comp.BasicSalary, &comp.SalaryGrade, &comp.EPFNumber, &comp.BankName, &e.BankAccountEnc, &comp.BankBranch,
		&e.LeaveAllowances.Monthly, &e.LeaveAllowances.Annual, &e.LeaveAllowances.Sick, &e.LeaveAllowances.Casual,
		&e.LastLogin, &e.CreatedAt, &e.UpdatedAt)
	if db.IsNoRows(err) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	e.Compensation = &comp
	return e, nil
}

func mapWriteErr(err error) error {
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func buildFilter(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if filter.Department != "" {
		add("department = $%d", filter.Department)
	}
	if filter.Role != "" {
		add("role = $%d", filter.Role)
	}
	if filter.Status != "" {
		add("employment_status = $%d", filter.Status)
	}
	if filter.IsActive != nil {
		add("is_active = $%d", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d OR employee_id ILIKE $%[1]d)", "%"+search+"%")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, int, error) {
	where, args := buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + employeeColumns + " FROM users" + where +
		fmt.Sprintf(" ORDER BY employee_id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM users WHERE id = $1", id))
}

func (s *Store) Create(ctx context.Context, rec NewRecord) (Employee, error) {
	e, err := scanEmployee(s.DB.QueryRow(ctx, `
    INSERT INTO users (
      employee_id, email, password_hash, is_password_set, role, first_name, last_name, phone,
      department, designation, join_date, employment_status,
      basic_salary, salary_grade, epf_number, bank_name, bank_account_enc, bank_branch,
      monthly_leave_allowance, annual_leave_allowance, sick_leave_allowance, casual_leave_allowance
    ) VALUES (
      $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
      COALESCE($19::numeric, 2), COALESCE($20::numeric, 14), COALESCE($21::numeric, 7), COALESCE($22::numeric, 7)
    )
    RETURNING `+employeeColumns,
		rec.EmployeeID, strings.ToLower(strings.TrimSpace(rec.Email)), rec.PasswordHash, rec.PasswordHash != "", rec.Role,
		rec.FirstName, rec.LastName, rec.Phone, rec.Department, rec.Designation, rec.Joined, rec.EmploymentStatus,
		rec.BasicSalary, rec.SalaryGrade, rec.EPFNumber, rec.BankName, rec.BankAccountEnc, rec.BankBranch,
		rec.MonthlyAllowance, rec.AnnualAllowance, rec.SickAllowance, rec.CasualAllowance))
	return e, mapWriteErr(err)
}

func (s *Store) Update(ctx context.Context, id string, in UpdateInput, joinDate *time.Time) (Employee, error) {
	var email *string
	if in.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*in.Email))
		email = &lowered
	}
	e, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE users SET
      first_name = COALESCE($2, first_name),
      last_name = COALESCE($3, last_name),
      email = COALESCE($4, email),
      phone = COALESCE($5, phone),
      department = COALESCE($6, department),
      designation = COALESCE($7, designation),
      role = COALESCE($8, role),
      employment_status = COALESCE($9, employment_status),
      join_date = COALESCE($10, join_date),
      updated_at = now()
    WHERE id = $1
    RETURNING `+employeeColumns,
		id, in.FirstName, in.LastName, email, in.Phone, in.Department, in.Designation, in.Role, in.EmploymentStatus, joinDate))
	return e, mapWriteErr(err)
}

func (s *Store) UpdateSalary(ctx context.Context, id string, in SalaryUpdate, bankAccountEnc []byte) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE users SET
      basic_salary = COALESCE($2, basic_salary),
      salary_grade = COALESCE($3, salary_grade),
      epf_number = COALESCE($4, epf_number),
      bank_name = COALESCE($5, bank_name),
      bank_account_enc = COALESCE($6, bank_account_enc),
      bank_branch = COALESCE($7, bank_branch),
      monthly_leave_allowance = COALESCE($8, monthly_leave_allowance),
      annual_leave_allowance = COALESCE($9, annual_leave_allowance),
      sick_leave_allowance = COALESCE($10, sick_leave_allowance),
      casual_leave_allowance = COALESCE($11, casual_leave_allowance),
      updated_at = now()
    WHERE id = $1
    RETURNING `+employeeColumns,
		id, in.BasicSalary, in.SalaryGrade, in.EPFNumber, in.BankName, bankAccountEnc, in.BankBranch,
		in.MonthlyAllowance, in.AnnualAllowance, in.SickAllowance, in.CasualAllowance))
}

func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, is_password_set = true, updated_at = now() WHERE id = $2", hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COUNT(1) FILTER (WHERE is_active), COUNT(1) FILTER (WHERE NOT is_active)
    FROM users
  `).Scan(&out.Total, &out.Active, &out.Inactive); err != nil {
		return Stats{}, err
	}
	var err error
	if out.ByDepartment, err = s.countBy(ctx, "COALESCE(NULLIF(department, ''), 'unassigned')"); err != nil {
		return Stats{}, err
	}
	if out.ByRole, err = s.countBy(ctx, "role"); err != nil {
		return Stats{}, err
	}
	if out.ByStatus, err = s.countBy(ctx, "employment_status"); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// countBy groups users by a fixed column expression; expr is never user input.
func (s *Store) countBy(ctx context.Context, expr string) ([]Count, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+expr+" AS k, COUNT(1) FROM users GROUP BY k ORDER BY k")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) NextEmployeeID(ctx context.Context) (string, error) {
	return db.NextEmployeeCode(ctx, s.DB)
}
