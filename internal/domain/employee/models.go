package employee

import (
	"errors"
	"time"
)

const (
	StatusActive     = "active"
	StatusProbation  = "probation"
	StatusInactive   = "inactive"
	StatusTerminated = "terminated"
)

var EmploymentStatuses = []string{StatusActive, StatusProbation, StatusInactive, StatusTerminated}

var (
	ErrNotFound     = errors.New("employee not found")
	ErrDuplicate    = errors.New("employee id or email already exists")
	ErrSelfDelete   = errors.New("cannot delete your own account")
	ErrInvalidInput = errors.New("invalid employee data")
	ErrOwnRole      = errors.New("cannot change your own role")
	ErrAdminOnly    = errors.New("only an admin can change this account")
)

// Compensation is hidden from callers who are neither the owner nor admin/hr.
type Compensation struct {
	BasicSalary       float64 `json:"basicSalary"`
	SalaryGrade       string  `json:"salaryGrade"`
	EPFNumber         string  `json:"epfNumber"`
	BankName          string  `json:"bankName"`
	BankAccountNumber string  `json:"bankAccountNumber"`
	BankBranch        string  `json:"bankBranch"`
}

type LeaveAllowances struct {
	Monthly float64 `json:"monthlyLeaveAllowance"`
	Annual  float64 `json:"annualLeaveAllowance"`
	Sick    float64 `json:"sickLeaveAllowance"`
	Casual  float64 `json:"casualLeaveAllowance"`
}

type Employee struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employeeId"`
	Email            string          `json:"email"`
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Phone            string          `json:"phone"`
	Department       string          `json:"department"`
	Designation      string          `json:"designation"`
	Role             string          `json:"role"`
	JoinDate         *time.Time      `json:"joinDate,omitempty"`
	EmploymentStatus string          `json:"employmentStatus"`
	IsActive         bool            `json:"isActive"`
	IsPasswordSet    bool            `json:"isPasswordSet"`
	Compensation     *Compensation   `json:"compensation,omitempty"`
	LeaveAllowances  LeaveAllowances `json:"leaveAllowances"`
	LastLogin        *time.Time      `json:"lastLogin,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	BankAccountEnc []byte `json:"-"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

type CreateInput struct {
	EmployeeID       string   `json:"employeeId" validate:"omitempty,max=20"`
	Email            string   `json:"email" validate:"required,email"`
	Password         string   `json:"password" validate:"omitempty,password"`
	FirstName        string   `json:"firstName" validate:"required,max=100"`
	LastName         string   `json:"lastName" validate:"required,max=100"`
	Phone            string   `json:"phone" validate:"omitempty,max=30"`
	Department       string   `json:"department" validate:"omitempty,max=100"`
	Designation      string   `json:"designation" validate:"omitempty,max=100"`
	Role             string   `json:"role" validate:"omitempty,oneof=admin hr manager employee"`
	JoinDate         string   `json:"joinDate"`
	EmploymentStatus string   `json:"employmentStatus" validate:"omitempty,oneof=active probation inactive terminated"`
	BasicSalary      float64  `json:"basicSalary" validate:"gte=0"`
	SalaryGrade      string   `json:"salaryGrade" validate:"omitempty,max=20"`
	EPFNumber        string   `json:"epfNumber" validate:"omitempty,max=30"`
	BankName         string   `json:"bankName" validate:"omitempty,max=100"`
	BankAccount      string   `json:"bankAccountNumber" validate:"omitempty,max=40"`
	BankBranch       string   `json:"bankBranch" validate:"omitempty,max=100"`
	MonthlyAllowance *float64 `json:"monthlyLeaveAllowance" validate:"omitempty,gte=0"`
	AnnualAllowance  *float64 `json:"annualLeaveAllowance" validate:"omitempty,gte=0"`
	SickAllowance    *float64 `json:"sickLeaveAllowance" validate:"omitempty,gte=0"`
	CasualAllowance  *float64 `json:"casualLeaveAllowance" validate:"omitempty,gte=0"`
}

type UpdateInput struct {
	FirstName        *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName         *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email            *string `json:"email" validate:"omitempty,email"`
	Phone            *string `json:"phone" validate:"omitempty,max=30"`
	Department       *string `json:"department" validate:"omitempty,max=100"`
	Designation      *string `json:"designation" validate:"omitempty,max=100"`
	Role             *string `json:"role" validate:"omitempty,oneof=admin hr manager employee"`
	EmploymentStatus *string `json:"employmentStatus" validate:"omitempty,oneof=active probation inactive terminated"`
	JoinDate         *string `json:"joinDate"`
}

type SalaryUpdate struct {
	BasicSalary      *float64 `json:"basicSalary" validate:"omitempty,gte=0"`
	SalaryGrade      *string  `json:"salaryGrade" validate:"omitempty,max=20"`
	EPFNumber        *string  `json:"epfNumber" validate:"omitempty,max=30"`
	BankName         *string  `json:"bankName" validate:"omitempty,max=100"`
	BankAccount      *string  `json:"bankAccountNumber" validate:"omitempty,max=40"`
	BankBranch       *string  `json:"bankBranch" validate:"omitempty,max=100"`
	MonthlyAllowance *float64 `json:"monthlyLeaveAllowance" validate:"omitempty,gte=0"`
	AnnualAllowance  *float64 `json:"annualLeaveAllowance" validate:"omitempty,gte=0"`
	SickAllowance    *float64 `json:"sickLeaveAllowance" validate:"omitempty,gte=0"`
	CasualAllowance  *float64 `json:"casualLeaveAllowance" validate:"omitempty,gte=0"`
}

// NewRecord is a validated CreateInput with derived values resolved.
type NewRecord struct {
	CreateInput
	Joined         *time.Time
	PasswordHash   string
	BankAccountEnc []byte
}

type Filter struct {
	Department string
	Role       string
	Status     string
	Search     string
	IsActive   *bool
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Stats struct {
	Total        int     `json:"total"`
	Active       int     `json:"active"`
	Inactive     int     `json:"inactive"`
	ByDepartment []Count `json:"byDepartment"`
	ByRole       []Count `json:"byRole"`
	ByStatus     []Count `json:"byStatus"`
}
