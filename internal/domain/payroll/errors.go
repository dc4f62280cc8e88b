package payroll

import "errors"

var (
	ErrNotFound          = errors.New("salary record not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrEmployeeInactive  = errors.New("salary cannot be generated for an inactive or terminated employee")
	ErrDuplicate         = errors.New("salary already exists for this employee and period")
	ErrNotPending        = errors.New("only pending salaries can be changed")
	ErrInvalidTransition = errors.New("salary is not in a state that allows this action")
)
