package billing

import (
	"testing"

	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(s string) money.Money {
	m, err := money.FromString(s, "USD")
	if err != nil {
		panic(err)
	}
	return m
}

func pctCoupon(name string, pct string) CouponSpec {
	p := decimal.RequireFromString(pct)
	return CouponSpec{Name: name, Percentage: &p}
}

func fixedCoupon(name string, amount money.Money) CouponSpec {
	return CouponSpec{Name: name, Amount: &amount}
}

func TestAllocateDiscountsCompounds(t *testing.T) {
	base := usd("100.00")

	alloc, err := AllocateDiscounts(base, []CouponSpec{
		pctCoupon("spring", "10"),
		pctCoupon("loyalty", "10"),
	})
	require.NoError(t, err)

	// Second 10% runs on the 90.00 the first one left.
	require.Len(t, alloc.Entries, 2)
	assert.Equal(t, "10.00 USD", alloc.Entries[0].Amount.String())
	assert.Equal(t, "9.00 USD", alloc.Entries[1].Amount.String())
	assert.Equal(t, "19.00 USD", alloc.TotalDiscount.String())
	assert.Equal(t, "81.00 USD", alloc.ExcludingTax.String())
}

func TestAllocateDiscountsClampsAtRemaining(t *testing.T) {
	base := usd("30.00")

	alloc, err := AllocateDiscounts(base, []CouponSpec{
		fixedCoupon("big", usd("25.00")),
		fixedCoupon("bigger", usd("25.00")),
	})
	require.NoError(t, err)

	assert.Equal(t, "25.00 USD", alloc.Entries[0].Amount.String())
	assert.Equal(t, "5.00 USD", alloc.Entries[1].Amount.String())
	assert.Equal(t, "30.00 USD", alloc.TotalDiscount.String())
	assert.True(t, alloc.ExcludingTax.IsZero())
}

func TestAllocateDiscountsConservation(t *testing.T) {
	base := usd("99.99")

	alloc, err := AllocateDiscounts(base, []CouponSpec{
		pctCoupon("a", "3.33"),
		fixedCoupon("b", usd("12.34")),
		pctCoupon("c", "50"),
	})
	require.NoError(t, err)

	sum := money.Zero("USD")
	for _, e := range alloc.Entries {
		assert.False(t, e.Amount.IsNegative())
		sum = sum.Add(e.Amount)
	}
	assert.Equal(t, 0, sum.Cmp(alloc.TotalDiscount))
	assert.Equal(t, 0, base.Sub(alloc.TotalDiscount).Cmp(alloc.ExcludingTax))
}

func TestAllocateDiscountsCurrencyMismatch(t *testing.T) {
	eur, err := money.FromString("5.00", "EUR")
	require.NoError(t, err)

	_, err = AllocateDiscounts(usd("50.00"), []CouponSpec{fixedCoupon("off", eur)})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestAllocateTaxesIndependentRates(t *testing.T) {
	base := usd("100.00")

	alloc := AllocateTaxes(base, []TaxRateSpec{
		{Name: "vat", Percentage: decimal.NewFromInt(20)},
		{Name: "levy", Percentage: decimal.NewFromInt(5)},
	})

	// 25% combined, not 20% then 5% on 120.
	require.Len(t, alloc.Entries, 2)
	assert.Equal(t, "20.00 USD", alloc.Entries[0].Amount.String())
	assert.Equal(t, "5.00 USD", alloc.Entries[1].Amount.String())
	assert.Equal(t, "25.00 USD", alloc.TotalTax.String())
	assert.Equal(t, "125.00 USD", alloc.TotalAmount.String())
}

func TestAllocateTaxesRoundsPerRate(t *testing.T) {
	base := usd("10.01")

	alloc := AllocateTaxes(base, []TaxRateSpec{
		{Name: "a", Percentage: decimal.RequireFromString("7.5")},
		{Name: "b", Percentage: decimal.RequireFromString("7.5")},
	})

	// 0.75075 rounds half up to 0.75 for each rate independently.
	assert.Equal(t, "0.75 USD", alloc.Entries[0].Amount.String())
	assert.Equal(t, "0.75 USD", alloc.Entries[1].Amount.String())
	assert.Equal(t, "1.50 USD", alloc.TotalTax.String())
}

func TestAllocateTaxesEmpty(t *testing.T) {
	base := usd("42.00")

	alloc := AllocateTaxes(base, nil)

	assert.True(t, alloc.TotalTax.IsZero())
	assert.Equal(t, 0, alloc.TotalAmount.Cmp(base))
}
