package payroll

import "time"

type Allowances struct {
	CostOfLiving float64 `json:"costOfLiving"`
	Food         float64 `json:"food"`
	Conveyance   float64 `json:"conveyance"`
	Medical      float64 `json:"medical"`
	Total        float64 `json:"total"`
}

type Deductions struct {
	NoPay         float64 `json:"noPay"`
	EPFEmployee   float64 `json:"epfEmployee"`
	APIT          float64 `json:"apit"`
	SalaryAdvance float64 `json:"salaryAdvance"`
	Total         float64 `json:"total"`
}

// EmployerContributions are reported on the payslip but never deducted.
type EmployerContributions struct {
	EPFEmployer float64 `json:"epfEmployer"`
	ETF         float64 `json:"etf"`
	Total       float64 `json:"total"`
}

type Salary struct {
	ID                    string                `json:"id,omitempty"`
	EmployeeID            string                `json:"employeeId"`
	EmployeeCode          string                `json:"employeeCode"`
	EmployeeName          string                `json:"employeeName"`
	Department            string                `json:"department"`
	Designation           string                `json:"designation"`
	Month                 int                   `json:"month"`
	Year                  int                   `json:"year"`
	BasicSalary           float64               `json:"basicSalary"`
	Allowances            Allowances            `json:"allowances"`
	Deductions            Deductions            `json:"deductions"`
	EmployerContributions EmployerContributions `json:"employerContributions"`
	WorkingDays           int                   `json:"workingDays"`
	TotalLeaveDaysTaken   float64               `json:"totalLeaveDaysTaken"`
	PaidLeaveDays         float64               `json:"paidLeaveDays"`
	NoPayLeaveDays        float64               `json:"noPayLeaveDays"`
	OvertimeHours         float64               `json:"overtimeHours"`
	OvertimePay           float64               `json:"overtimePay"`
	Bonus                 float64               `json:"bonus"`
	Reimbursements        float64               `json:"reimbursements"`
	GrossSalary           float64               `json:"grossSalary"`
	NetPayableSalary      float64               `json:"netPayableSalary"`
	Status                string                `json:"status"`
	CreatedBy             *string               `json:"createdBy,omitempty"`
	ApprovedBy            *string               `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time            `json:"approvedAt,omitempty"`
	PaidAt                *time.Time            `json:"paidAt,omitempty"`
	CreatedAt             time.Time             `json:"createdAt,omitempty"`
	UpdatedAt             time.Time             `json:"updatedAt,omitempty"`
}

// EmployeeSnapshot is the employee data a salary is computed from.
type EmployeeSnapshot struct {
	ID                    string
	EmployeeCode          string
	FirstName             string
	LastName              string
	Department            string
	Designation           string
	BasicSalary           float64
	MonthlyLeaveAllowance float64
	EmploymentStatus      string
	IsActive              bool
}

func (e EmployeeSnapshot) Payable() bool {
	return e.IsActive && e.EmploymentStatus != "inactive" && e.EmploymentStatus != "terminated"
}

type LeaveWindow struct {
	Start     time.Time
	End       time.Time
	IsHalfDay bool
}

type CalculateInput struct {
	EmployeeID     string  `json:"employeeId" validate:"required,uuid"`
	Month          int     `json:"month" validate:"required,min=1,max=12"`
	Year           int     `json:"year" validate:"required,min=2000,max=2100"`
	Bonus          float64 `json:"bonus" validate:"gte=0"`
	Reimbursements float64 `json:"reimbursements" validate:"gte=0"`
	APIT           float64 `json:"apit" validate:"gte=0"`
	SalaryAdvance  float64 `json:"salaryAdvance" validate:"gte=0"`
}

// Adjustments are the operator-supplied amounts editable while pending.
type Adjustments struct {
	Bonus          *float64 `json:"bonus" validate:"omitempty,gte=0"`
	Reimbursements *float64 `json:"reimbursements" validate:"omitempty,gte=0"`
	APIT           *float64 `json:"apit" validate:"omitempty,gte=0"`
	SalaryAdvance  *float64 `json:"salaryAdvance" validate:"omitempty,gte=0"`
	OvertimeHours  *float64 `json:"overtimeHours" validate:"omitempty,gte=0"`
}

type Filter struct {
	EmployeeID string
	Department string
	Status     string
	Month      int
	Year       int
}
