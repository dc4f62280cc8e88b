package admin

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidRole    = errors.New("invalid role")
	ErrOwnRole        = errors.New("cannot change your own role")
	ErrSelfDeactivate = errors.New("cannot deactivate your own account")
)

// User is the account view shown on the admin console.
type User struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employeeId"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Department       string     `json:"department"`
	Role             string     `json:"role"`
	EmploymentStatus string     `json:"employmentStatus"`
	IsActive         bool       `json:"isActive"`
	IsPasswordSet    bool       `json:"isPasswordSet"`
	MFAEnabled       bool       `json:"mfaEnabled"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
}

type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=admin hr manager employee"`
}

type UserCounts struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Inactive int            `json:"inactive"`
	ByRole   map[string]int `json:"byRole"`
}

type AttendanceToday struct {
	CheckedIn  int `json:"checkedIn"`
	CheckedOut int `json:"checkedOut"`
	Late       int `json:"late"`
}

type SystemStats struct {
	Users           UserCounts      `json:"users"`
	Attendance      AttendanceToday `json:"attendanceToday"`
	PendingLeaves   int             `json:"pendingLeaves"`
	PendingSalaries int             `json:"pendingSalaries"`
	SchedulesToday  int             `json:"schedulesToday"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}
