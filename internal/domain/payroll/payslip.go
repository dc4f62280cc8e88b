package payroll

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WritePayslip renders s as a single-page A4 PDF.
func WritePayslip(w io.Writer, s Salary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", s.EmployeeName, s.EmployeeCode))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Department: %s   Designation: %s", s.Department, s.Designation))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s %d   Status: %s", time.Month(s.Month).String(), s.Year, s.Status))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Working days: %d   Leave taken: %.1f (paid %.1f, no-pay %.1f)",
		s.WorkingDays, s.TotalLeaveDaysTaken, s.PaidLeaveDays, s.NoPayLeaveDays))
	pdf.Ln(10)

	section := func(title string, lines [][2]any) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, line := range lines {
			pdf.CellFormat(120, 7, line[0].(string), "", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, fmt.Sprintf("%.2f", line[1].(float64)), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}

	section("Earnings", [][2]any{
		{"Basic salary", s.BasicSalary},
		{"Cost of living allowance", s.Allowances.CostOfLiving},
		{"Food allowance", s.Allowances.Food},
		{"Conveyance allowance", s.Allowances.Conveyance},
		{"Medical allowance", s.Allowances.Medical},
		{fmt.Sprintf("Overtime (%.2f h)", s.OvertimeHours), s.OvertimePay},
		{"Bonus", s.Bonus},
		{"Reimbursements", s.Reimbursements},
	})
	section("Deductions", [][2]any{
		{"No-pay leave", s.Deductions.NoPay},
		{"EPF (8%)", s.Deductions.EPFEmployee},
		{"APIT", s.Deductions.APIT},
		{"Salary advance", s.Deductions.SalaryAdvance},
		{"Total deductions", s.Deductions.Total},
	})
	section("Employer contributions", [][2]any{
		{"EPF (12%)", s.EmployerContributions.EPFEmployer},
		{"ETF (3%)", s.EmployerContributions.ETF},
	})

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 8, "Gross salary", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, fmt.Sprintf("%.2f", s.GrossSalary), "T", 1, "R", false, 0, "")
	pdf.CellFormat(120, 8, "Net payable", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, fmt.Sprintf("%.2f", s.NetPayableSalary), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}

func PayslipFilename(s Salary) string {
	return fmt.Sprintf("payslip-%s-%d-%02d.pdf", s.EmployeeCode, s.Year, s.Month)
}
