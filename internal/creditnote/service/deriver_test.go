package service

import (
	"testing"

	"github.com/billora/billora/internal/creditnote/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceLine(quantity int64, excludingTax, tax, total string) invoicedomain.InvoiceLine {
	return invoicedomain.InvoiceLine{
		Quantity:          quantity,
		Amount:            decimal.RequireFromString(excludingTax),
		TotalExcludingTax: decimal.RequireFromString(excludingTax),
		TotalTax:          decimal.RequireFromString(tax),
		TotalAmount:       decimal.RequireFromString(total),
	}
}

func qty(n int64) *int64 { return &n }

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDeriveLineByQuantity(t *testing.T) {
	line := invoiceLine(4, "100.00", "20.00", "120.00")

	derived, err := DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(1)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), derived.Quantity)
	assert.Equal(t, "25.00 USD", derived.ExcludingTax.String())
	assert.Equal(t, "5.00 USD", derived.Tax.String())
	assert.Equal(t, "30.00 USD", derived.Total.String())
}

func TestDeriveLineByAmount(t *testing.T) {
	line := invoiceLine(2, "100.00", "20.00", "120.00")

	derived, err := DeriveLine(line, "USD", domain.LineRequest{Amount: amt("60.00")})
	require.NoError(t, err)

	// Ratio is 60/120 = 0.5; quantity stays unset in amount mode.
	assert.Equal(t, int64(0), derived.Quantity)
	assert.Equal(t, "50.00 USD", derived.ExcludingTax.String())
	assert.Equal(t, "10.00 USD", derived.Tax.String())
	assert.Equal(t, "60.00 USD", derived.Total.String())
}

func TestDeriveLineRoundsEachTotalIndependently(t *testing.T) {
	line := invoiceLine(3, "10.00", "0.88", "10.88")

	derived, err := DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(1)})
	require.NoError(t, err)

	// Each total is scaled by 1/3 and rounded on its own, so the parts
	// need not sum exactly to the scaled grand total.
	assert.Equal(t, "3.33 USD", derived.ExcludingTax.String())
	assert.Equal(t, "0.29 USD", derived.Tax.String())
	assert.Equal(t, "3.63 USD", derived.Total.String())
}

func TestDeriveLineExceedsOutstandingQuantity(t *testing.T) {
	line := invoiceLine(5, "50.00", "0", "50.00")
	line.CreditedQuantity = 3

	_, err := DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(3)})
	assert.ErrorIs(t, err, domain.ErrExceedsOutstanding)

	derived, err := DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(2)})
	require.NoError(t, err)
	assert.Equal(t, "20.00 USD", derived.Total.String())
}

func TestDeriveLineExceedsOutstandingAmount(t *testing.T) {
	line := invoiceLine(1, "100.00", "0", "100.00")
	line.CreditedAmount = decimal.RequireFromString("80.00")

	_, err := DeriveLine(line, "USD", domain.LineRequest{Amount: amt("30.00")})
	assert.ErrorIs(t, err, domain.ErrExceedsOutstanding)
}

func TestDeriveLineZeroQuantityLine(t *testing.T) {
	line := invoiceLine(0, "0", "0", "0")

	derived, err := DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(1)})
	require.NoError(t, err)
	assert.True(t, derived.Ratio.IsZero())
	assert.True(t, derived.Total.IsZero())
}

func TestDeriveLineValidation(t *testing.T) {
	line := invoiceLine(2, "10.00", "0", "10.00")

	_, err := DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(1), Amount: amt("5.00")})
	assert.ErrorIs(t, err, domain.ErrQuantityAndAmount)

	_, err = DeriveLine(line, "USD", domain.LineRequest{})
	assert.ErrorIs(t, err, domain.ErrMissingQuantityOrAmount)

	_, err = DeriveLine(line, "USD", domain.LineRequest{Quantity: qty(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidCreditRequest)

	_, err = DeriveLine(line, "USD", domain.LineRequest{Amount: amt("-1.00")})
	assert.ErrorIs(t, err, domain.ErrInvalidCreditRequest)
}
