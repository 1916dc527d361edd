// Package core holds the ledger domain model shared by every binary.
//
// Money is kept as int64 cents everywhere inside the system; decimal
// values only exist at the API boundary.
package core

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MoneyFromDecimal converts a decimal amount (as carried by JSON
// payloads) to cents with half-up rounding on fractional cents.
// Negative and zero amounts are rejected.
//
// Examples:
//
//	MoneyFromDecimal(decimal.NewFromFloat(12.34))  -> Money{1234}, nil
//	MoneyFromDecimal(decimal.NewFromFloat(12.345)) -> Money{1235}, nil
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.BigInt().BitLen() > 62 {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// GoalFromDecimal converts a goal amount to cents. Goals are optional,
// so zero is accepted and means "no goal"; only negative amounts are
// rejected.
func GoalFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Sign() < 0 || cents.BigInt().BitLen() > 62 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// DeltaFromDecimal converts a signed decimal delta to cents. Unlike
// MoneyFromDecimal it accepts negative values: additive category
// updates use negative deltas as corrections.
func DeltaFromDecimal(d decimal.Decimal) (int64, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.BigInt().BitLen() > 62 {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Units returns the major-unit value as a float64 for wire payloads
// and display. Use cents for arithmetic.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}
