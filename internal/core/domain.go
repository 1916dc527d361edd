package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Weekly  Frequency = "weekly"
	Daily   Frequency = "daily"
)

type (
	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID          int64
		Name        string
		Email       string
		Avatar      string
		JoinDate    Date
		IncomeGoal  Money // zero when unset
		SavingsGoal Money // zero when unset
	}

	IncomeEntry struct {
		ID       int64
		UserID   int64
		Category string
		Emoji    string
		Amount   Money
		Date     Date
	}

	ExpenseEntry struct {
		ID             int64
		UserID         int64
		Category       string
		Emoji          string
		Amount         Money
		Date           Date
		SubscriptionID int64 // 0 when the entry was recorded manually
	}

	Subscription struct {
		ID          int64
		UserID      int64
		Name        string
		Amount      Money
		Category    string
		Frequency   Frequency
		StartDate   Date
		EndDate     Date  // zero when open-ended by date
		RepeatCount int64 // 0 when unbounded by count
		Occurrences int64 // occurrences generated so far
		Active      bool
	}

	Budget struct {
		ID       int64
		UserID   int64
		Category string
		Emoji    string
		Amount   Money
		Spent    Money
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidYear         = errors.New("invalid year")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyCategory       = errors.New("empty category")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrMissingTerminator   = errors.New("either an end date or a repeat count is required")
	ErrZeroDate            = errors.New("date cannot be zero")
	ErrCategoryTooLong     = errors.New("category too long (max 100 characters)")
	ErrNameTooLong         = errors.New("name too long (max 200 characters)")
	ErrEndBeforeStart      = errors.New("end date must be after start date")
	ErrNegativeRepeatCount = errors.New("repeat count cannot be negative")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string as produced by date inputs.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e IncomeEntry) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > 100 {
		return ErrCategoryTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

func (e ExpenseEntry) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > 100 {
		return ErrCategoryTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if len(b.Category) > 100 {
		return ErrCategoryTooLong
	}
	return b.Amount.Validate()
}

// Remaining is the budgeted amount not yet consumed. It can go negative
// when spending overshoots the allocation.
func (b Budget) Remaining() Money {
	return Money{Cents: b.Amount.Cents - b.Spent.Cents}
}

func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return ErrNameTooLong
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if err := s.Frequency.Validate(); err != nil {
		return err
	}
	if err := s.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	if !s.EndDate.IsZero() {
		if err := s.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if s.EndDate.Before(s.StartDate.Time) {
			return ErrEndBeforeStart
		}
	}
	if s.RepeatCount < 0 {
		return ErrNegativeRepeatCount
	}

	// A subscription must terminate: at least one of the two bounds has
	// to be present. Both are allowed; the earlier one wins.
	if s.EndDate.IsZero() && s.RepeatCount == 0 {
		return ErrMissingTerminator
	}
	return nil
}
