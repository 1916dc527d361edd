package core

import "math"

// CategoryAmount is an amount aggregated by category name. For expense
// categories, Subscriptions carries the slice of the total that came
// from generated subscription occurrences; it never exceeds Amount.
type CategoryAmount struct {
	Name          string
	Emoji         string
	Amount        Money
	Subscriptions Money
}

// GoalProgress pairs an accumulated amount with its target.
type GoalProgress struct {
	Current Money
	Goal    Money
}

// Percent is the unclamped progress toward the goal, rounded half up.
// A zero goal always yields 0, never a division error.
func (g GoalProgress) Percent() int {
	return Percentage(g.Current, g.Goal)
}

// PeriodSummary is the month-level overview the dashboard renders.
type PeriodSummary struct {
	Year     int
	Month    int // 1-12
	Expenses GoalProgress
	Budget   GoalProgress
	Income   GoalProgress
	Savings  GoalProgress
}

// SeriesPoint is one month of the income/expense trend.
type SeriesPoint struct {
	Year    int
	Month   int // 1-12
	Income  Money
	Expense Money
}

// Percentage reports current as a rounded percentage of goal,
// unclamped: 150% overshoot is visible to the caller.
func Percentage(current, goal Money) int {
	if goal.Cents == 0 {
		return 0
	}
	return int(math.Round(float64(current.Cents) / float64(goal.Cents) * 100))
}

// PercentageClamped is Percentage capped to [0, 100] for progress bars.
func PercentageClamped(current, goal Money) int {
	p := Percentage(current, goal)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
