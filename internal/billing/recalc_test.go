package billing

import (
	"testing"

	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculateEndToEnd(t *testing.T) {
	unit := usd("50.00")
	doc := DocumentInput{
		Currency: "USD",
		Lines: []LineInput{
			{Quantity: 2, UnitAmount: &unit},
		},
		Discounts: []CouponSpec{pctCoupon("welcome", "10")},
		TaxRates: []TaxRateSpec{
			{Name: "vat", Percentage: decimal.NewFromInt(20)},
		},
	}

	totals, err := Recalculate(doc)
	require.NoError(t, err)

	assert.Equal(t, "100.00 USD", totals.Subtotal.String())
	assert.Equal(t, "10.00 USD", totals.TotalDiscount.String())
	assert.Equal(t, "90.00 USD", totals.ExcludingTax.String())
	assert.Equal(t, "18.00 USD", totals.TotalTax.String())
	assert.Equal(t, "108.00 USD", totals.TotalAmount.String())
	assert.Equal(t, "108.00 USD", totals.Outstanding.String())

	require.Len(t, totals.Lines, 1)
	assert.Equal(t, "100.00 USD", totals.Lines[0].Amount.String())
	assert.Equal(t, "50.00 USD", totals.Lines[0].UnitAmount.String())
}

func TestRecalculateIdempotent(t *testing.T) {
	unit := usd("19.99")
	doc := DocumentInput{
		Currency: "USD",
		Lines: []LineInput{
			{Quantity: 3, UnitAmount: &unit, Discounts: []CouponSpec{pctCoupon("intro", "7.5")}},
		},
		TaxRates: []TaxRateSpec{
			{Name: "sales", Percentage: decimal.RequireFromString("8.875")},
		},
	}

	first, err := Recalculate(doc)
	require.NoError(t, err)
	second, err := Recalculate(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecalculateResolvesTieredPrice(t *testing.T) {
	ten := int64(10)
	price := &pricingdomain.Price{
		Currency:     "USD",
		PricingModel: pricingdomain.Graduated,
	}
	tiers := []pricingdomain.PriceTier{
		{FromQuantity: 0, ToQuantity: &ten, UnitAmount: decimal.NewFromInt(10)},
		{FromQuantity: 11, UnitAmount: decimal.NewFromInt(8)},
	}

	totals, err := Recalculate(DocumentInput{
		Currency: "USD",
		Lines:    []LineInput{{Quantity: 15, Price: price, Tiers: tiers}},
	})
	require.NoError(t, err)

	assert.Equal(t, "140.00 USD", totals.Lines[0].Amount.String())
	assert.Equal(t, "140.00 USD", totals.TotalAmount.String())
}

func TestRecalculateLineAndDocumentDiscounts(t *testing.T) {
	unit := usd("100.00")
	totals, err := Recalculate(DocumentInput{
		Currency: "USD",
		Lines: []LineInput{
			{Quantity: 1, UnitAmount: &unit, Discounts: []CouponSpec{pctCoupon("line", "10")}},
		},
		Discounts: []CouponSpec{pctCoupon("doc", "10")},
	})
	require.NoError(t, err)

	// Document coupon runs on the 90.00 the line coupon left.
	assert.Equal(t, "19.00 USD", totals.TotalDiscount.String())
	assert.Equal(t, "81.00 USD", totals.ExcludingTax.String())
	assert.Equal(t, "81.00 USD", totals.TotalAmount.String())
}

func TestRecalculateLineTaxesRollUp(t *testing.T) {
	unit := usd("40.00")
	totals, err := Recalculate(DocumentInput{
		Currency: "USD",
		Lines: []LineInput{
			{Quantity: 1, UnitAmount: &unit, TaxRates: []TaxRateSpec{{Name: "vat", Percentage: decimal.NewFromInt(20)}}},
			{Quantity: 1, UnitAmount: &unit},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "8.00 USD", totals.TotalTax.String())
	assert.Equal(t, "88.00 USD", totals.TotalAmount.String())
	assert.Equal(t, "8.00 USD", totals.Lines[0].TotalTax.String())
	assert.True(t, totals.Lines[1].TotalTax.IsZero())
}

func TestRecalculateOutstandingClamp(t *testing.T) {
	unit := usd("60.00")
	doc := DocumentInput{
		Currency:      "USD",
		Lines:         []LineInput{{Quantity: 1, UnitAmount: &unit}},
		TotalCredited: usd("20.00"),
		TotalPaid:     usd("15.00"),
	}

	totals, err := Recalculate(doc)
	require.NoError(t, err)
	assert.Equal(t, "25.00 USD", totals.Outstanding.String())

	doc.TotalPaid = usd("100.00")
	totals, err = Recalculate(doc)
	require.NoError(t, err)
	assert.True(t, totals.Outstanding.IsZero())
}

func TestRecalculateCurrencyMismatch(t *testing.T) {
	eur, err := money.FromString("10.00", "EUR")
	require.NoError(t, err)

	_, err = Recalculate(DocumentInput{
		Currency: "USD",
		Lines:    []LineInput{{Quantity: 1, UnitAmount: &eur}},
	})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestRecalculateMissingAmount(t *testing.T) {
	_, err := Recalculate(DocumentInput{
		Currency: "USD",
		Lines:    []LineInput{{Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrMissingAmount)
}

func TestRecalculateEmptyDocument(t *testing.T) {
	totals, err := Recalculate(DocumentInput{Currency: "USD"})
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.TotalAmount.IsZero())
	assert.True(t, totals.Outstanding.IsZero())
}
