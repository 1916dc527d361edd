// Package services holds the orchestration logic that sits between the
// HTTP surface and storage.
//
// This file implements the Strategy Pattern for subscription cadences.
// Each frequency (daily, weekly, monthly, yearly) has its own strategy
// that maps an occurrence index to its calendar date.
package services

import (
	"fmt"
	"time"

	"spendtrail/internal/core"
)

// Cadence is the strategy interface for stepping a subscription
// schedule. Occurrence 0 is the start date itself.
type Cadence interface {
	// OccurrenceAt returns the date of the n-th occurrence counted
	// from the start date.
	OccurrenceAt(start core.Date, n int64) core.Date
}

// DailyCadence implements Cadence for daily subscriptions.
type DailyCadence struct{}

func (DailyCadence) OccurrenceAt(start core.Date, n int64) core.Date {
	return core.Date{Time: start.AddDate(0, 0, int(n))}
}

// WeeklyCadence implements Cadence for weekly subscriptions.
type WeeklyCadence struct{}

func (WeeklyCadence) OccurrenceAt(start core.Date, n int64) core.Date {
	return core.Date{Time: start.AddDate(0, 0, int(n)*7)}
}

// MonthlyCadence implements Cadence for monthly subscriptions. The
// target day is clamped to the last day of shorter months: a Jan 31
// subscription bills on Feb 28, then Mar 31 again.
type MonthlyCadence struct{}

func (MonthlyCadence) OccurrenceAt(start core.Date, n int64) core.Date {
	months := int64(start.Month()-1) + n
	year := start.Year() + int(months/12)
	month := int(months%12) + 1
	return core.NewDate(year, month, clampDay(start.Day(), year, month))
}

// YearlyCadence implements Cadence for yearly subscriptions, clamping
// Feb 29 starts to Feb 28 outside leap years.
type YearlyCadence struct{}

func (YearlyCadence) OccurrenceAt(start core.Date, n int64) core.Date {
	year := start.Year() + int(n)
	return core.NewDate(year, start.Month(), clampDay(start.Day(), year, start.Month()))
}

func clampDay(day, year, month int) int {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// cadences maps frequencies to their strategies.
var cadences = map[core.Frequency]Cadence{
	core.Daily:   DailyCadence{},
	core.Weekly:  WeeklyCadence{},
	core.Monthly: MonthlyCadence{},
	core.Yearly:  YearlyCadence{},
}

// GetCadence returns the cadence strategy for a frequency.
func GetCadence(frequency core.Frequency) (Cadence, error) {
	c, ok := cadences[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return c, nil
}

// Projection is the derived schedule state of a subscription at a
// point in time.
type Projection struct {
	// Occurrences due on or before the reference date, honoring both
	// terminators.
	Occurrences int64
	// NextDue is the first occurrence after the reference date; zero
	// when the subscription is exhausted.
	NextDue core.Date
	// Exhausted reports that no further occurrence will ever be due.
	Exhausted bool
}

// ProjectOccurrences walks the schedule from the start date and counts
// the occurrences due by asOf. Whichever terminator (end date or
// repeat count) cuts the schedule first wins.
func ProjectOccurrences(s core.Subscription, asOf core.Date) (Projection, error) {
	cadence, err := GetCadence(s.Frequency)
	if err != nil {
		return Projection{}, err
	}

	var proj Projection
	for n := int64(0); ; n++ {
		if s.RepeatCount > 0 && n >= s.RepeatCount {
			proj.Exhausted = true
			return proj, nil
		}
		due := cadence.OccurrenceAt(s.StartDate, n)
		if !s.EndDate.IsZero() && due.After(s.EndDate.Time) {
			proj.Exhausted = true
			return proj, nil
		}
		if due.After(asOf.Time) {
			proj.NextDue = due
			return proj, nil
		}
		proj.Occurrences++
	}
}
