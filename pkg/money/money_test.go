package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name  string
		cents int64
		pct   string
		want  int64
	}{
		{name: "forty percent of 100.00", cents: 10000, pct: "40", want: 4000},
		{name: "seventy five percent", cents: 10000, pct: "75", want: 7500},
		{name: "half cent rounds up", cents: 1, pct: "50", want: 1},
		{name: "below half rounds down", cents: 333, pct: "15", want: 50},
		{name: "fractional rule", cents: 9999, pct: "12.5", want: 1250},
		{name: "zero", cents: 0, pct: "40", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Percent(tc.cents, decimal.RequireFromString(tc.pct)))
		})
	}
}

func TestParsePercentBounds(t *testing.T) {
	pct, err := ParsePercent("15.50")
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("15.5")))

	_, err = ParsePercent("101")
	assert.Error(t, err)
	_, err = ParsePercent("-1")
	assert.Error(t, err)
	_, err = ParsePercent("abc")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "40.00", Format(4000))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-12.30", Format(-1230))
}
