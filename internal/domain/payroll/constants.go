package payroll

import "github.com/shopspring/decimal"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusPaid     = "paid"
)

var Statuses = []string{StatusPending, StatusApproved, StatusPaid}

// Fixed monthly allowances and statutory rates, in LKR.
var (
	costOfLivingRate = decimal.RequireFromString("0.25")
	foodAllowance    = decimal.NewFromInt(5000)
	conveyance       = decimal.NewFromInt(3000)
	medicalAllowance = decimal.NewFromInt(2000)

	noPayPerDay     = decimal.NewFromInt(1000)
	epfEmployeeRate = decimal.RequireFromString("0.08")
	epfEmployerRate = decimal.RequireFromString("0.12")
	etfRate         = decimal.RequireFromString("0.03")

	overtimeDivisor    = decimal.NewFromInt(240)
	overtimeMultiplier = decimal.RequireFromString("1.5")
)
