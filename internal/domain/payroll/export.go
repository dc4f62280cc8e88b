package payroll

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var registerHeader = []string{
	"employee_code", "employee_name", "department", "month", "year", "basic_salary",
	"total_allowances", "overtime_pay", "bonus", "reimbursements", "total_deductions",
	"epf_employer", "etf", "gross_salary", "net_payable_salary", "status",
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func registerRecord(s Salary) []string {
	return []string{
		s.EmployeeCode, s.EmployeeName, s.Department, strconv.Itoa(s.Month), strconv.Itoa(s.Year),
		money(s.BasicSalary), money(s.Allowances.Total), money(s.OvertimePay), money(s.Bonus),
		money(s.Reimbursements), money(s.Deductions.Total), money(s.EmployerContributions.EPFEmployer),
		money(s.EmployerContributions.ETF), money(s.GrossSalary), money(s.NetPayableSalary), s.Status,
	}
}

func WriteRegisterCSV(w io.Writer, rows []Salary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(registerHeader); err != nil {
		return err
	}
	for _, s := range rows {
		if err := writer.Write(registerRecord(s)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

const registerSheet = "Register"

// WriteRegisterXLSX writes the salary register as a workbook with numeric
// amount cells.
func WriteRegisterXLSX(w io.Writer, rows []Salary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return err
	}
	header := make([]any, len(registerHeader))
	for i, h := range registerHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(registerSheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(registerHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(registerSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, s := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			s.EmployeeCode, s.EmployeeName, s.Department, s.Month, s.Year, s.BasicSalary,
			s.Allowances.Total, s.OvertimePay, s.Bonus, s.Reimbursements, s.Deductions.Total,
			s.EmployerContributions.EPFEmployer, s.EmployerContributions.ETF,
			s.GrossSalary, s.NetPayableSalary, s.Status,
		}
		if err := f.SetSheetRow(registerSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(registerSheet, "A", lastCol, 16); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
