package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkingDays counts Monday to Friday in the month. Public holidays are not
// excluded.
func WorkingDays(year int, month time.Month) int {
	count := 0
	for d := monthStart(year, month); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

func monthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(year int, month time.Month) time.Time {
	return monthStart(year, month).AddDate(0, 1, -1)
}

// LeaveDaysInMonth sums approved leave clipped to the month; half days count 0.5.
func LeaveDaysInMonth(leaves []LeaveWindow, year int, month time.Month) float64 {
	first, last := monthStart(year, month), monthEnd(year, month)
	total := decimal.Zero
	for _, l := range leaves {
		if l.IsHalfDay {
			if !l.Start.Before(first) && !l.Start.After(last) {
				total = total.Add(decimal.RequireFromString("0.5"))
			}
			continue
		}
		start, end := l.Start, l.End
		if start.Before(first) {
			start = first
		}
		if end.After(last) {
			end = last
		}
		if end.Before(start) {
			continue
		}
		days := int(end.Sub(start).Hours()/24+0.5) + 1
		total = total.Add(decimal.NewFromInt(int64(days)))
	}
	return total.InexactFloat64()
}

// SplitLeave divides taken days into those covered by the monthly allowance
// and the no-pay remainder.
func SplitLeave(taken, allowance float64) (paid, noPay float64) {
	t := decimal.NewFromFloat(taken)
	a := decimal.NewFromFloat(allowance)
	if a.IsNegative() {
		a = decimal.Zero
	}
	p := decimal.Min(t, a)
	return p.InexactFloat64(), t.Sub(p).InexactFloat64()
}

// Compute builds the salary breakdown for one employee and month. The result
// is passed through RecalculateTotals.
func Compute(emp EmployeeSnapshot, month, year int, leaves []LeaveWindow, overtimeHours float64, in CalculateInput) Salary {
	basic := decimal.NewFromFloat(emp.BasicSalary)
	taken := LeaveDaysInMonth(leaves, year, time.Month(month))
	paid, noPay := SplitLeave(taken, emp.MonthlyLeaveAllowance)

	s := Salary{
		EmployeeID:   emp.ID,
		EmployeeCode: emp.EmployeeCode,
		EmployeeName: emp.FirstName + " " + emp.LastName,
		Department:   emp.Department,
		Designation:  emp.Designation,
		Month:        month,
		Year:         year,
		BasicSalary:  basic.InexactFloat64(),
		Allowances: Allowances{
			CostOfLiving: basic.Mul(costOfLivingRate).Round(0).InexactFloat64(),
			Food:         foodAllowance.InexactFloat64(),
			Conveyance:   conveyance.InexactFloat64(),
			Medical:      medicalAllowance.InexactFloat64(),
		},
		Deductions: Deductions{
			NoPay:         decimal.NewFromFloat(noPay).Mul(noPayPerDay).Round(2).InexactFloat64(),
			EPFEmployee:   basic.Mul(epfEmployeeRate).Round(0).InexactFloat64(),
			APIT:          in.APIT,
			SalaryAdvance: in.SalaryAdvance,
		},
		EmployerContributions: EmployerContributions{
			EPFEmployer: basic.Mul(epfEmployerRate).Round(0).InexactFloat64(),
			ETF:         basic.Mul(etfRate).Round(0).InexactFloat64(),
		},
		WorkingDays:         WorkingDays(year, time.Month(month)),
		TotalLeaveDaysTaken: taken,
		PaidLeaveDays:       paid,
		NoPayLeaveDays:      noPay,
		OvertimeHours:       overtimeHours,
		Bonus:               in.Bonus,
		Reimbursements:      in.Reimbursements,
		Status:              StatusPending,
	}
	return RecalculateTotals(s)
}

// OvertimePay is round(basic / 240 * 1.5 * hours).
func OvertimePay(basic, hours float64) float64 {
	return decimal.NewFromFloat(basic).
		Div(overtimeDivisor).
		Mul(overtimeMultiplier).
		Mul(decimal.NewFromFloat(hours)).
		Round(0).InexactFloat64()
}

// RecalculateTotals derives overtime pay, every total, gross and net from the
// component amounts. Call it before each insert or update.
func RecalculateTotals(s Salary) Salary {
	d := decimal.NewFromFloat
	s.OvertimePay = OvertimePay(s.BasicSalary, s.OvertimeHours)

	s.Allowances.Total = d(s.Allowances.CostOfLiving).
		Add(d(s.Allowances.Food)).
		Add(d(s.Allowances.Conveyance)).
		Add(d(s.Allowances.Medical)).InexactFloat64()
	s.Deductions.Total = d(s.Deductions.NoPay).
		Add(d(s.Deductions.EPFEmployee)).
		Add(d(s.Deductions.APIT)).
		Add(d(s.Deductions.SalaryAdvance)).InexactFloat64()
	s.EmployerContributions.Total = d(s.EmployerContributions.EPFEmployer).
		Add(d(s.EmployerContributions.ETF)).InexactFloat64()

	gross := d(s.BasicSalary).Add(d(s.Allowances.Total))
	s.GrossSalary = gross.InexactFloat64()
	s.NetPayableSalary = gross.
		Add(d(s.OvertimePay)).
		Add(d(s.Bonus)).
		Add(d(s.Reimbursements)).
		Sub(d(s.Deductions.Total)).InexactFloat64()
	return s
}
