/*
Package finance provides the shared primitives for the obligation ledgers.

PURPOSE:
  This package contains the domain-agnostic building blocks used by both the
  payroll settlement engine and the installment billing ledger: fixed-point
  monetary amounts, (month, year) billing periods, an injectable clock, the
  shared obligation status rule, and the centralized error taxonomy.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A fixed-precision decimal amount (2 fractional digits)
  - All arithmetic goes through decimal.Decimal; binary floats never
    participate in ledger math

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Derived state: Aggregates (outstanding, entitlement) are always
     recomputed from line items, never stored as mutable totals
  3. Recoverable errors: Every condition reachable by user action maps to
     one of the error classes in errors.go

USAGE:
  fee := finance.MustParseMoney("100000")
  paid := finance.NewMoney(40000)
  outstanding := finance.Outstanding(fee, finance.ZeroMoney(), paid)

SEE ALSO:
  - period.go: Billing/settlement periods
  - status.go: Shared obligation status rule
  - errors.go: Error taxonomy
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point amount with 2 fractional digits
// =============================================================================

// Money is a single-currency monetary amount. The zero value is zero money.
type Money struct {
	Value decimal.Decimal
}

// moneyScale is the number of fractional digits carried by every amount.
const moneyScale = 2

// NewMoney builds an amount from a float, rounded half-up to 2 decimals.
// Intended for literals and config values; ledger math never round-trips
// through floats.
func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value).Round(moneyScale)}
}

// NewMoneyFromInt builds an amount from whole currency units.
func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// ParseMoney parses a decimal string such as "1234.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Message: "invalid decimal: " + s}
	}
	return Money{Value: d.Round(moneyScale)}, nil
}

// MustParseMoney parses a decimal string, returning zero on failure.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		return ZeroMoney()
	}
	return m
}

// FromDecimal wraps a raw decimal, rounded half-up to 2 decimals.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Value: d.Round(moneyScale)}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

// Arithmetic. Round is applied on multiplication only; add/sub of 2-decimal
// amounts cannot gain precision.
func (m Money) Add(b Money) Money             { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money             { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s).Round(moneyScale)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }

// SubFloor subtracts b and floors the result at zero. This is the operation
// behind every outstanding-balance calculation: overpayment and
// over-discounting never drive a ledger value negative.
func (m Money) SubFloor(b Money) Money {
	r := m.Sub(b)
	if r.IsNegative() {
		return ZeroMoney()
	}
	return r
}

// Comparison
func (m Money) Compare(b Money) int     { return m.Value.Cmp(b.Value) }
func (m Money) Equal(b Money) bool      { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool   { return m.Value.LessThan(b.Value) }
func (m Money) IsZero() bool            { return m.Value.IsZero() }
func (m Money) IsNegative() bool        { return m.Value.IsNegative() }
func (m Money) IsPositive() bool        { return m.Value.IsPositive() }

func (m Money) Min(b Money) Money {
	if m.LessThan(b) {
		return m
	}
	return b
}

// String renders the amount with exactly 2 decimals, e.g. "3750.00".
func (m Money) String() string { return m.Value.StringFixed(moneyScale) }

// Outstanding derives the remaining obligation: max(0, total - discount - paid).
// Shared by both ledgers so the floor-at-zero rule cannot drift between them.
func Outstanding(total, discount, paid Money) Money {
	return total.Sub(discount).SubFloor(paid)
}
