package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 3 || d.Day() != 9 {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("03/09/2025"); err == nil {
		t.Fatalf("expected error for slash format")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestFrequencyValidate(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Monthly, Yearly} {
		if err := f.Validate(); err != nil {
			t.Fatalf("%s: expected ok, got %v", f, err)
		}
	}
	if err := Frequency("fortnightly").Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestIncomeEntryValidate(t *testing.T) {
	good := IncomeEntry{
		Category: "Salary",
		Emoji:    "💰",
		Amount:   Money{Cents: 200000},
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []IncomeEntry{
		{Category: "", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{Category: "  ", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{Category: "Salary", Amount: Money{Cents: 0}, Date: NewDate(2025, 1, 1)},
		{Category: "Salary", Amount: Money{Cents: 1}, Date: Date{Time: time.Time{}}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetRemaining(t *testing.T) {
	b := Budget{Category: "Food", Amount: Money{Cents: 50000}, Spent: Money{Cents: 12050}}
	if got := b.Remaining().Cents; got != 37950 {
		t.Fatalf("expected 37950, got %d", got)
	}
	over := Budget{Category: "Food", Amount: Money{Cents: 1000}, Spent: Money{Cents: 1500}}
	if got := over.Remaining().Cents; got != -500 {
		t.Fatalf("expected -500 on overshoot, got %d", got)
	}
}

func TestSubscriptionValidate(t *testing.T) {
	base := Subscription{
		Name:      "Netflix Premium",
		Amount:    Money{Cents: 1599},
		Category:  "Entertainment",
		Frequency: Monthly,
		StartDate: NewDate(2025, 1, 15),
	}

	byDate := base
	byDate.EndDate = NewDate(2025, 12, 15)
	if err := byDate.Validate(); err != nil {
		t.Fatalf("end-date terminator: expected ok, got %v", err)
	}

	byCount := base
	byCount.RepeatCount = 12
	if err := byCount.Validate(); err != nil {
		t.Fatalf("repeat-count terminator: expected ok, got %v", err)
	}

	both := byDate
	both.RepeatCount = 6
	if err := both.Validate(); err != nil {
		t.Fatalf("both terminators: expected ok, got %v", err)
	}

	if err := base.Validate(); !errors.Is(err, ErrMissingTerminator) {
		t.Fatalf("no terminator: expected ErrMissingTerminator, got %v", err)
	}

	backwards := base
	backwards.EndDate = NewDate(2024, 12, 31)
	if err := backwards.Validate(); !errors.Is(err, ErrEndBeforeStart) {
		t.Fatalf("end before start: expected ErrEndBeforeStart, got %v", err)
	}

	negative := byCount
	negative.RepeatCount = -3
	if err := negative.Validate(); !errors.Is(err, ErrNegativeRepeatCount) {
		t.Fatalf("negative repeat count: expected ErrNegativeRepeatCount, got %v", err)
	}

	noStart := byCount
	noStart.StartDate = Date{}
	if err := noStart.Validate(); !errors.Is(err, ErrZeroDate) {
		t.Fatalf("zero start date: expected wrapped ErrZeroDate, got %v", err)
	}

	badFreq := byCount
	badFreq.Frequency = "sometimes"
	if err := badFreq.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}
