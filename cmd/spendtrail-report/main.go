package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"

	"spendtrail/internal/aggregate"
	"spendtrail/internal/config"
	"spendtrail/internal/core"
	"spendtrail/internal/export"
	"spendtrail/internal/storage"
)

type Params struct {
	Email string `descr:"Email of the user to report on" positional:"true"`
	Month int    `descr:"Report month (1-12, default: current)"`
	Year  int    `descr:"Report year (default: current)"`
	Db    string `descr:"SQLite database path (default: from config)"`
	Xlsx  string `descr:"Also write the report as an xlsx workbook to this path"`
	Trend int    `descr:"Months of income/expense trend to print (default: 6)"`
}

func main() {
	_ = godotenv.Load()

	boa.NewCmdT[Params]("spendtrail-report").
		WithShort("Print a monthly finance report for one user").
		WithLong("Reads the ledger database and prints the month's summary, expense and income breakdowns, and budget standing. Optionally exports the same report as an xlsx workbook.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	cfg := config.Load()
	dbPath := params.Db
	if dbPath == "" {
		dbPath = cfg.SQLiteDBPath
	}

	now := time.Now()
	period := core.PeriodOf(now)
	if params.Year != 0 {
		period.Year = params.Year
	}
	if params.Month != 0 {
		period.Month = params.Month
	}
	if err := period.Validate(); err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	user, err := repo.UserByEmail(ctx, params.Email)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", params.Email, err)
	}

	aggregator := aggregate.New(repo, core.Money{Cents: cfg.DefaultBudgetGoalCents})
	summary, err := aggregator.SummarizePeriod(ctx, user.ID, period)
	if err != nil {
		return err
	}
	expenses, err := aggregator.ExpenseBreakdown(ctx, user.ID, period)
	if err != nil {
		return err
	}
	incomes, err := aggregator.IncomeBreakdown(ctx, user.ID, period)
	if err != nil {
		return err
	}
	budgets, err := aggregator.BudgetBreakdown(ctx, user.ID)
	if err != nil {
		return err
	}
	months := params.Trend
	if months <= 0 {
		months = 6
	}
	trend, err := aggregator.BuildTimeSeries(ctx, user.ID, period, months)
	if err != nil {
		return err
	}

	fmt.Printf("%s %d report for %s\n\n", time.Month(period.Month), period.Year, user.Email)
	printSummary(summary)
	printBreakdown("Expenses", expenses, true)
	printBreakdown("Incomes", incomes, false)
	printBudgets(budgets)
	printTrend(trend)

	if params.Xlsx != "" {
		f, err := os.Create(params.Xlsx)
		if err != nil {
			return fmt.Errorf("create %s: %w", params.Xlsx, err)
		}
		defer f.Close()
		if err := export.WriteMonthlyReport(f, export.MonthlyReport{
			Summary:  summary,
			Expenses: expenses,
			Incomes:  incomes,
			Budgets:  budgets,
		}); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		fmt.Printf("\nWorkbook written to %s\n", params.Xlsx)
	}
	return nil
}

func money(m core.Money) string {
	return fmt.Sprintf("%.2f", m.Units())
}

func printSummary(s core.PeriodSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"", "Current", "Goal", "Progress"})
	rows := []struct {
		name string
		g    core.GoalProgress
	}{
		{"Income", s.Income},
		{"Expenses", s.Expenses},
		{"Budget", s.Budget},
		{"Savings", s.Savings},
	}
	for _, r := range rows {
		t.AppendRow(table.Row{r.name, money(r.g.Current), money(r.g.Goal),
			fmt.Sprintf("%d%%", r.g.Percent())})
	}
	applyStyle(t)
	t.Render()
	fmt.Println()
}

func printBreakdown(title string, sums []core.CategoryAmount, withSubscriptions bool) {
	if len(sums) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	header := table.Row{title, "Amount"}
	if withSubscriptions {
		header = append(header, "From subscriptions")
	}
	t.AppendHeader(header)

	var total core.Money
	for _, ca := range sums {
		row := table.Row{ca.Name, money(ca.Amount)}
		if withSubscriptions {
			row = append(row, money(ca.Subscriptions))
		}
		t.AppendRow(row)
		total.Cents += ca.Amount.Cents
	}
	t.AppendSeparator()
	footer := table.Row{text.Bold.Sprint("Total"), text.Bold.Sprint(money(total))}
	if withSubscriptions {
		footer = append(footer, "")
	}
	t.AppendFooter(footer)
	applyStyle(t)
	t.Render()
	fmt.Println()
}

func printBudgets(budgets []core.Budget) {
	if len(budgets) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Budget", "Amount", "Spent", "Remaining"})
	for _, b := range budgets {
		remaining := money(b.Remaining())
		if b.Remaining().Cents < 0 {
			remaining = text.FgRed.Sprint(remaining)
		}
		t.AppendRow(table.Row{b.Category, money(b.Amount), money(b.Spent), remaining})
	}
	applyStyle(t)
	t.Render()
}

func printTrend(points []core.SeriesPoint) {
	if len(points) == 0 {
		return
	}
	fmt.Println()
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Month", "Income", "Expenses", "Net"})
	for _, p := range points {
		net := core.Money{Cents: p.Income.Cents - p.Expense.Cents}
		netCell := money(net)
		if net.Cents < 0 {
			netCell = text.FgRed.Sprint(netCell)
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%s %d", time.Month(p.Month), p.Year),
			money(p.Income), money(p.Expense), netCell,
		})
	}
	applyStyle(t)
	t.Render()
}

func applyStyle(t table.Writer) {
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
}
