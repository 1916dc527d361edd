package aggregate

import (
	"context"
	"fmt"

	"spendtrail/internal/core"
)

// Graph type discriminators. The graphs payload is a tagged array: the
// client picks each variant by its Type string, so the tags are part
// of the wire contract.
const (
	GraphTypeIncomeExpense = "incomeExpenseAnalysis"
	GraphTypePie           = "Piechart_data"
)

// Bar fills for the income/expense comparison chart.
const (
	fillIncome  = "#4ade80"
	fillExpense = "#f87171"
	fillSavings = "#60a5fa"
)

type Graph struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// BarPoint is one bar of the income/expense comparison.
type BarPoint struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Fill   string  `json:"fill"`
}

// PiePoint is one slice of the category pie chart.
type PiePoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DashboardGraphs assembles both graph variants for the period: the
// income/expense/savings bars and the expense category pie.
func (a *Aggregator) DashboardGraphs(ctx context.Context, userID int64, p core.Period) ([]Graph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	income, err := a.ledger.IncomeTotal(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("dashboard graphs: %w", err)
	}
	expenses, err := a.ledger.ExpenseTotal(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("dashboard graphs: %w", err)
	}
	breakdown, err := a.ExpenseBreakdown(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("dashboard graphs: %w", err)
	}

	savings := core.Money{Cents: income.Cents - expenses.Cents}
	bars := []BarPoint{
		{Label: "Income", Amount: income.Units(), Fill: fillIncome},
		{Label: "Expenses", Amount: expenses.Units(), Fill: fillExpense},
		{Label: "Savings", Amount: savings.Units(), Fill: fillSavings},
	}

	slices := make([]PiePoint, 0, len(breakdown))
	for _, ca := range breakdown {
		slices = append(slices, PiePoint{Name: ca.Name, Value: ca.Amount.Units()})
	}

	return []Graph{
		{Type: GraphTypeIncomeExpense, Data: bars},
		{Type: GraphTypePie, Data: slices},
	}, nil
}
