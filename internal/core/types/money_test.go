package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarkup(t *testing.T) {
	tests := []struct {
		name string
		cost MinorUnits
		sale MinorUnits
		want string
	}{
		{"quarter margin", 500, 625, "0.25"},
		{"no margin", 500, 500, "0"},
		{"zero cost yields zero", 0, 625, "0"},
		{"double", 1000, 2000, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Markup(tt.cost, tt.sale)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestApplyMarkup(t *testing.T) {
	markup := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	assert.Equal(t, MinorUnits(625), ApplyMarkup(500, markup("0.25")))
	assert.Equal(t, MinorUnits(500), ApplyMarkup(500, markup("0")))

	// 333 * 1.1 = 366.3, rounds half away from zero to 366.
	assert.Equal(t, MinorUnits(366), ApplyMarkup(333, markup("0.1")))

	// Markup and ApplyMarkup round-trip.
	sale := ApplyMarkup(1200, markup("0.5"))
	assert.True(t, Markup(1200, sale).Equal(markup("0.5")))
}

func TestNewMinorUnitsFromDecimal(t *testing.T) {
	assert.Equal(t, MinorUnits(12345), NewMinorUnitsFromDecimal(decimal.RequireFromString("123.45")))
	assert.Equal(t, MinorUnits(100), NewMinorUnitsFromDecimal(decimal.RequireFromString("0.995")))
	assert.Equal(t, MinorUnits(-250), NewMinorUnitsFromDecimal(decimal.RequireFromString("-2.50")))
}
