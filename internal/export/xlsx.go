// Package export renders monthly reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"spendtrail/internal/core"
)

// MonthlyReport is everything one report workbook needs.
type MonthlyReport struct {
	Summary  core.PeriodSummary
	Expenses []core.CategoryAmount
	Incomes  []core.CategoryAmount
	Budgets  []core.Budget
}

const (
	sheetSummary  = "Summary"
	sheetExpenses = "Expenses"
	sheetIncomes  = "Incomes"
	sheetBudgets  = "Budgets"
)

// WriteMonthlyReport builds the workbook and streams it to w.
func WriteMonthlyReport(w io.Writer, report MonthlyReport) error {
	f, err := BuildMonthlyReport(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// BuildMonthlyReport assembles the workbook in memory. The caller owns
// the returned file and must Close it.
func BuildMonthlyReport(report MonthlyReport) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(f, header, report.Summary); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCategories(f, header, sheetExpenses, report.Expenses, true); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCategories(f, header, sheetIncomes, report.Incomes, false); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeBudgets(f, header, report.Budgets); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeSummary(f *excelize.File, header int, s core.PeriodSummary) error {
	title := fmt.Sprintf("%s %d", time.Month(s.Month).String(), s.Year)
	rows := [][]any{
		{title, "", ""},
		{"", "Current", "Goal"},
		{"Income", s.Income.Current.Units(), s.Income.Goal.Units()},
		{"Expenses", s.Expenses.Current.Units(), s.Expenses.Goal.Units()},
		{"Budget", s.Budget.Current.Units(), s.Budget.Goal.Units()},
		{"Savings", s.Savings.Current.Units(), s.Savings.Goal.Units()},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "C2", header); err != nil {
		return fmt.Errorf("summary style: %w", err)
	}
	return nil
}

func writeCategories(f *excelize.File, header int, sheet string, sums []core.CategoryAmount, withSubscriptions bool) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	head := []any{"Category", "Amount"}
	if withSubscriptions {
		head = append(head, "From subscriptions")
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	end, _ := excelize.CoordinatesToCellName(len(head), 1)
	if err := f.SetCellStyle(sheet, "A1", end, header); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, ca := range sums {
		row := []any{ca.Name, ca.Amount.Units()}
		if withSubscriptions {
			row = append(row, ca.Subscriptions.Units())
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s cell: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func writeBudgets(f *excelize.File, header int, budgets []core.Budget) error {
	if _, err := f.NewSheet(sheetBudgets); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetBudgets, err)
	}

	head := []any{"Category", "Amount", "Spent", "Remaining"}
	if err := f.SetSheetRow(sheetBudgets, "A1", &head); err != nil {
		return fmt.Errorf("budgets header: %w", err)
	}
	if err := f.SetCellStyle(sheetBudgets, "A1", "D1", header); err != nil {
		return fmt.Errorf("budgets header style: %w", err)
	}

	for i, b := range budgets {
		row := []any{b.Category, b.Amount.Units(), b.Spent.Units(), b.Remaining().Units()}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("budgets cell: %w", err)
		}
		if err := f.SetSheetRow(sheetBudgets, cell, &row); err != nil {
			return fmt.Errorf("budgets row %d: %w", i+2, err)
		}
	}
	return nil
}
