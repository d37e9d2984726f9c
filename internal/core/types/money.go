// Package types provides common monetary types shared by all aggregates.
package types

import (
	"github.com/shopspring/decimal"
)

// MinorUnits represents a monetary value in minor currency units (cents).
// Storage: int64 - sufficient for ±922 trillion minor units.
// Example: 123.45 BRL → 12345.
type MinorUnits int64

// NewMinorUnitsFromDecimal converts a major-unit decimal amount into minor
// units, rounding half away from zero. Prefer this over float conversions.
func NewMinorUnitsFromDecimal(major decimal.Decimal) MinorUnits {
	return MinorUnits(major.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// ToDecimal converts minor units back to a major-unit decimal for display
// and ratio arithmetic.
func (m MinorUnits) ToDecimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m MinorUnits) Int64() int64      { return int64(m) }
func (m MinorUnits) IsZero() bool      { return m == 0 }
func (m MinorUnits) IsPositive() bool  { return m > 0 }
func (m MinorUnits) IsNegative() bool  { return m < 0 }
func (m MinorUnits) Neg() MinorUnits   { return -m }

func (m MinorUnits) Abs() MinorUnits {
	if m < 0 {
		return -m
	}
	return m
}

// MulInt multiplies a unit price by an integer quantity.
// Line totals are always unitPrice × quantity in minor units.
func (m MinorUnits) MulInt(qty int) MinorUnits {
	return m * MinorUnits(qty)
}

// Markup returns the relative margin (salePrice - cost) / cost as a decimal.
// Zero cost yields a zero markup rather than a division error.
func Markup(unitCost, unitSalePrice MinorUnits) decimal.Decimal {
	if unitCost == 0 {
		return decimal.Zero
	}
	cost := unitCost.ToDecimal()
	return unitSalePrice.ToDecimal().Sub(cost).Div(cost)
}

// ApplyMarkup derives a sale price from a cost and a relative markup
// (0.25 means +25%), rounding half away from zero.
func ApplyMarkup(unitCost MinorUnits, markup decimal.Decimal) MinorUnits {
	factor := decimal.NewFromInt(1).Add(markup)
	return NewMinorUnitsFromDecimal(unitCost.ToDecimal().Mul(factor))
}
