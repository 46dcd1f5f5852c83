package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	a, err := FromString("10.50", "usd")
	require.NoError(t, err)
	b, err := FromString("0.25", "USD")
	require.NoError(t, err)

	assert.Equal(t, "USD", a.Currency)
	assert.True(t, a.Add(b).Amount.Equal(decimal.RequireFromString("10.75")))
	assert.True(t, a.Sub(b).Amount.Equal(decimal.RequireFromString("10.25")))
	assert.True(t, a.MulInt64(3).Amount.Equal(decimal.RequireFromString("31.50")))
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, b, a.Min(b))
}

func TestCurrencyMismatchPanics(t *testing.T) {
	usd := FromMinorUnits(100, "USD")
	eur := FromMinorUnits(100, "EUR")

	assert.Panics(t, func() { usd.Add(eur) })
	assert.Panics(t, func() { usd.Sub(eur) })
	assert.Panics(t, func() { usd.Cmp(eur) })
}

func TestZeroValueIsCurrencyNeutral(t *testing.T) {
	var zero Money
	usd := FromMinorUnits(250, "USD")

	sum := zero.Add(usd)
	assert.Equal(t, "USD", sum.Currency)
	assert.True(t, sum.Amount.Equal(usd.Amount))
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		raw      string
		currency string
		want     string
	}{
		{"1.005", "USD", "1.01"},
		{"1.004", "USD", "1.00"},
		{"2.675", "USD", "2.68"},
		{"100.5", "JPY", "101"},
		{"1.0005", "KWD", "1.001"},
	}
	for _, tc := range tests {
		m, err := FromString(tc.raw, tc.currency)
		require.NoError(t, err)
		assert.True(t, m.Round().Amount.Equal(decimal.RequireFromString(tc.want)),
			"%s %s -> %s", tc.raw, tc.currency, m.Round().Amount)
	}
}

func TestClampZero(t *testing.T) {
	m := FromMinorUnits(-500, "USD")
	clamped := m.ClampZero()
	assert.True(t, clamped.IsZero())
	assert.Equal(t, "USD", clamped.Currency)

	positive := FromMinorUnits(500, "USD")
	assert.Equal(t, positive, positive.ClampZero())
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, "12.34 USD", FromMinorUnits(1234, "USD").String())
	assert.Equal(t, "1234 JPY", FromMinorUnits(1234, "JPY").String())
	assert.Equal(t, "1.234 BHD", FromMinorUnits(1234, "BHD").String())
}
