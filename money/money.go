/*
Package money provides fixed-point decimal helpers for monetary calculations.

PURPOSE:
  Every stored premium, limit, fee, and accumulator balance in this system is
  a decimal.Decimal. Floating point is only ever used at the API boundary when
  serializing summary fields. This package centralizes the rounding and
  division conventions so the engines never have to think about them.

CONVENTIONS:
  - Intermediate results keep full precision.
  - Presentation rounding is half-up, 2 fractional digits for premiums.
  - Multipliers are compared and reported at 6 fractional digits.
  - Division by zero yields zero (per-member average with no participants).

SEE ALSO:
  - pricing/engine.go: Premium arithmetic
  - claims/rules.go: Coinsurance liability split
*/
package money

import "github.com/shopspring/decimal"

// Common constants used throughout the engines.
var (
	Zero    = decimal.Zero
	One     = decimal.NewFromInt(1)
	Hundred = decimal.NewFromInt(100)
	Twelve  = decimal.NewFromInt(12)
)

// FromInt builds a decimal from an integer amount.
func FromInt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// MustParse parses a decimal literal. Falls back to zero on malformed input;
// intended for constants and seed data, not user input.
func MustParse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundPremium applies half-up rounding at 2 fractional digits.
// This is the FINAL presentation step; never round intermediates.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative amounts this system produces.
func RoundPremium(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SafeDiv divides a by b, returning zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
