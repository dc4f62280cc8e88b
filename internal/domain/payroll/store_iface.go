package payroll

import (
	"context"
	"time"
)

type StoreAPI interface {
	Employee(ctx context.Context, employeeID string) (EmployeeSnapshot, error)
	ApprovedLeaves(ctx context.Context, employeeID string, from, to time.Time) ([]LeaveWindow, error)
	OvertimeHours(ctx context.Context, employeeID string, from, to time.Time) (float64, error)
	Exists(ctx context.Context, employeeID string, month, year int) (bool, error)

	Create(ctx context.Context, s Salary) (Salary, error)
	Get(ctx context.Context, id string) (Salary, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Salary, int, error)
	SaveAdjustments(ctx context.Context, s Salary) (Salary, error)
	Approve(ctx context.Context, id, approverID string, at time.Time) (Salary, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (Salary, error)
	Delete(ctx context.Context, id string) error
}
