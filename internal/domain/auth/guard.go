package auth

import (
	"net/http"
	"slices"
)

const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

var Roles = []string{RoleAdmin, RoleHR, RoleManager, RoleEmployee}

func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// UserContext is the authenticated caller attached to each request.
type UserContext struct {
	UserID     string `json:"id"`
	EmployeeID string `json:"employeeId"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	SessionID  string `json:"-"`
}

func (u UserContext) HasRole(roles ...string) bool {
	return slices.Contains(roles, u.Role)
}

// Privileged callers (admin, hr) may read and mutate every employee's records.
func (u UserContext) Privileged() bool {
	return u.HasRole(RoleAdmin, RoleHR)
}

// Supervisor callers additionally include managers, who may read team data and
// review requests.
func (u UserContext) Supervisor() bool {
	return u.HasRole(RoleAdmin, RoleHR, RoleManager)
}

type Decision struct {
	Allowed bool
	Status  int
	Code    string
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(status int, code, reason string) Decision {
	return Decision{Status: status, Code: code, Reason: reason}
}

// Guard inspects the caller and decides whether the request may continue.
type Guard func(UserContext) Decision

func RequireRoles(roles ...string) Guard {
	return func(u UserContext) Decision {
		if u.HasRole(roles...) {
			return Allow()
		}
		return Deny(http.StatusForbidden, "forbidden", "insufficient role")
	}
}

// RequireActiveSession rejects a context that carries no user id.
func RequireActiveSession() Guard {
	return func(u UserContext) Decision {
		if u.UserID == "" {
			return Deny(http.StatusUnauthorized, "unauthorized", "authentication required")
		}
		return Allow()
	}
}

// Evaluate runs guards in order and returns the first denial.
func Evaluate(u UserContext, guards ...Guard) Decision {
	for _, g := range guards {
		if d := g(u); !d.Allowed {
			return d
		}
	}
	return Allow()
}

// CanAccessOwned reports whether the caller may read a record owned by ownerID.
// Owners always may; admin and hr always may; managers only when allowManager.
func CanAccessOwned(u UserContext, ownerID string, allowManager bool) bool {
	if u.UserID != "" && u.UserID == ownerID {
		return true
	}
	if u.Privileged() {
		return true
	}
	return allowManager && u.Role == RoleManager
}
