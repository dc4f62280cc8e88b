package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"workpulse/internal/domain/auth"
	"workpulse/internal/domain/leave"
	"workpulse/internal/platform/config"
	"workpulse/internal/platform/db"
)

// Seed installs the default leave policies and the bootstrap admin account.
// Both steps are idempotent.
func Seed(ctx context.Context, q db.Querier, cfg config.Config) error {
	if err := ensureLeavePolicies(ctx, leave.NewStore(q)); err != nil {
		return err
	}
	return ensureAdminUser(ctx, q, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureLeavePolicies(ctx context.Context, store *leave.Store) error {
	for _, p := range leave.DefaultPolicies() {
		_, err := store.CreatePolicy(ctx, p)
		if err == nil {
			slog.Info("seeded leave policy", "leaveType", p.LeaveType)
			continue
		}
		if !errors.Is(err, leave.ErrPolicyExists) {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, q db.Querier, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1)", email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	code, err := db.NextEmployeeCode(ctx, q)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
    INSERT INTO users (employee_id, email, password_hash, is_password_set, role, first_name, last_name, department, designation)
    VALUES ($1, $2, $3, true, $4, 'System', 'Administrator', 'Administration', 'Administrator')
  `, code, email, hash, auth.RoleAdmin)
	if db.IsUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("seeded admin user", "email", email, "employeeId", code)
	return nil
}
