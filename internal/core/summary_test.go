package core

import "testing"

func TestPercentage(t *testing.T) {
	cases := []struct {
		name    string
		current int64
		goal    int64
		want    int
	}{
		{"zero goal yields zero", 5000, 0, 0},
		{"ninety percent", 180000, 200000, 90},
		{"rounds half up", 500, 3000, 17},
		{"overshoot stays unclamped", 30000, 20000, 150},
		{"zero current", 0, 10000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Percentage(Money{Cents: tc.current}, Money{Cents: tc.goal})
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestPercentageClamped(t *testing.T) {
	if got := PercentageClamped(Money{Cents: 30000}, Money{Cents: 20000}); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := PercentageClamped(Money{Cents: -500}, Money{Cents: 1000}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := PercentageClamped(Money{Cents: 1800}, Money{Cents: 2000}); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
}

func TestGoalProgressPercent(t *testing.T) {
	g := GoalProgress{Current: Money{Cents: 180000}, Goal: Money{Cents: 200000}}
	if got := g.Percent(); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
}
