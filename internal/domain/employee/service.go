package employee

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"workpulse/internal/domain/auth"
	cryptoutil "workpulse/internal/platform/crypto"
)

type Service struct {
	Store  StoreAPI
	Crypto *cryptoutil.Service
}

func NewService(store StoreAPI, crypto *cryptoutil.Service) *Service {
	return &Service{Store: store, Crypto: crypto}
}

// ForViewer hides compensation and bank details unless the viewer owns the
// record or is admin/hr.
func ForViewer(e Employee, viewer auth.UserContext) Employee {
	if viewer.Privileged() || viewer.UserID == e.ID {
		return e
	}
	e.Compensation = nil
	return e
}

func (s *Service) decryptBank(e Employee) Employee {
	if e.Compensation == nil || len(e.BankAccountEnc) == 0 {
		return e
	}
	plain, err := s.Crypto.Open(cryptoutil.FieldBankAccount, e.BankAccountEnc)
	if err != nil {
		slog.Warn("bank account decrypt failed", "employeeId", e.ID, "err", err)
		return e
	}
	comp := *e.Compensation
	comp.BankAccountNumber = plain
	e.Compensation = &comp
	return e
}

func (s *Service) List(ctx context.Context, viewer auth.UserContext, filter Filter, limit, offset int) ([]Employee, int, error) {
	items, total, err := s.Store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i] = ForViewer(s.decryptBank(items[i]), viewer)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, viewer auth.UserContext, id string) (Employee, error) {
	e, err := s.Store.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	return ForViewer(s.decryptBank(e), viewer), nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: joinDate must use YYYY-MM-DD", ErrInvalidInput)
	}
	return &parsed, nil
}

// Create adds an employee account. Accounts created without a password keep
// isPasswordSet=false and cannot sign in until one is assigned.
func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	joined, err := parseOptionalDate(in.JoinDate)
	if err != nil {
		return Employee{}, err
	}
	rec := NewRecord{CreateInput: in, Joined: joined}
	rec.EmployeeID = strings.ToUpper(strings.TrimSpace(in.EmployeeID))
	if rec.EmployeeID == "" {
		if rec.EmployeeID, err = s.Store.NextEmployeeID(ctx); err != nil {
			return Employee{}, err
		}
	}
	if rec.Role == "" {
		rec.Role = auth.RoleEmployee
	}
	if rec.EmploymentStatus == "" {
		rec.EmploymentStatus = StatusActive
	}
	if in.Password != "" {
		if rec.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return Employee{}, err
		}
	}
	if rec.BankAccountEnc, err = s.Crypto.Seal(cryptoutil.FieldBankAccount, in.BankAccount); err != nil {
		return Employee{}, err
	}
	e, err := s.Store.Create(ctx, rec)
	if err != nil {
		return Employee{}, err
	}
	return s.decryptBank(e), nil
}

// CheckUpdate reports whether actor may apply in to target. Roles change only
// through an admin and never on the actor's own account; an admin's email and
// employment status belong to admins.
func CheckUpdate(actor auth.UserContext, target Employee, in UpdateInput) error {
	if in.Role != nil && *in.Role != target.Role {
		if actor.Role != auth.RoleAdmin {
			return ErrAdminOnly
		}
		if actor.UserID == target.ID {
			return ErrOwnRole
		}
	}
	if actor.Role != auth.RoleAdmin && target.Role == auth.RoleAdmin && (in.Email != nil || in.EmploymentStatus != nil) {
		return ErrAdminOnly
	}
	return nil
}

func (s *Service) Update(ctx context.Context, actor auth.UserContext, id string, in UpdateInput) (Employee, error) {
	target, err := s.Store.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	if err := CheckUpdate(actor, target, in); err != nil {
		return Employee{}, err
	}
	var joined *time.Time
	if in.JoinDate != nil {
		if joined, err = parseOptionalDate(*in.JoinDate); err != nil {
			return Employee{}, err
		}
	}
	e, err := s.Store.Update(ctx, id, in, joined)
	if err != nil {
		return Employee{}, err
	}
	return s.decryptBank(e), nil
}

func (s *Service) UpdateSalary(ctx context.Context, id string, in SalaryUpdate) (Employee, error) {
	var enc []byte
	if in.BankAccount != nil {
		var err error
		if enc, err = s.Crypto.Seal(cryptoutil.FieldBankAccount, *in.BankAccount); err != nil {
			return Employee{}, err
		}
	}
	e, err := s.Store.UpdateSalary(ctx, id, in, enc)
	if err != nil {
		return Employee{}, err
	}
	return s.decryptBank(e), nil
}

// AssignPassword is the admin path that sets a password for an account,
// typically one HR created without credentials.
func (s *Service) AssignPassword(ctx context.Context, id, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.Store.SetPassword(ctx, id, hash)
}

func (s *Service) Delete(ctx context.Context, actor auth.UserContext, id string) error {
	if actor.UserID == id {
		return ErrSelfDelete
	}
	return s.Store.Delete(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Store.Stats(ctx)
}

func (s *Service) NextEmployeeID(ctx context.Context) (string, error) {
	return s.Store.NextEmployeeID(ctx)
}
