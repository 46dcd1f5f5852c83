package service

import (
	"github.com/billora/billora/internal/creditnote/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// DerivedLine is the outcome of scaling an invoice line by a credit ratio.
// Each total is scaled and rounded on its own from the invoice line's
// stored totals.
type DerivedLine struct {
	Quantity     int64
	Ratio        decimal.Decimal
	ExcludingTax money.Money
	Tax          money.Money
	Total        money.Money
}

// DeriveLine computes a credit note line from an invoice line and a
// requested quantity or amount. The request may not exceed the invoice
// line's outstanding (not original) quantity or amount; the ratio is
// clamped to [0, 1]. A zero-quantity invoice line always derives a zero
// credit.
func DeriveLine(line invoicedomain.InvoiceLine, currency string, req domain.LineRequest) (DerivedLine, error) {
	if req.Quantity != nil && req.Amount != nil {
		return DerivedLine{}, domain.ErrQuantityAndAmount
	}

	var ratio decimal.Decimal
	var quantity int64

	switch {
	case req.Quantity != nil:
		requested := *req.Quantity
		if requested <= 0 {
			return DerivedLine{}, domain.ErrInvalidCreditRequest
		}
		// A zero-quantity line has nothing to scale: the credit is zero
		// whatever was requested.
		if line.Quantity == 0 {
			break
		}
		if requested > line.Quantity-line.CreditedQuantity {
			return DerivedLine{}, domain.ErrExceedsOutstanding
		}
		ratio = decimal.NewFromInt(requested).Div(decimal.NewFromInt(line.Quantity))
		quantity = requested
	case req.Amount != nil:
		requested := *req.Amount
		if requested.IsNegative() || requested.IsZero() {
			return DerivedLine{}, domain.ErrInvalidCreditRequest
		}
		outstanding := line.TotalAmount.Sub(line.CreditedAmount)
		if requested.GreaterThan(outstanding) {
			return DerivedLine{}, domain.ErrExceedsOutstanding
		}
		if line.Quantity > 0 && !line.TotalAmount.IsZero() {
			ratio = requested.Div(line.TotalAmount)
		}
	default:
		return DerivedLine{}, domain.ErrMissingQuantityOrAmount
	}

	if ratio.GreaterThan(one) {
		ratio = one
	}
	if ratio.IsNegative() {
		ratio = decimal.Zero
	}

	return DerivedLine{
		Quantity:     quantity,
		Ratio:        ratio,
		ExcludingTax: money.New(line.TotalExcludingTax, currency).MulDecimal(ratio).Round(),
		Tax:          money.New(line.TotalTax, currency).MulDecimal(ratio).Round(),
		Total:        money.New(line.TotalAmount, currency).MulDecimal(ratio).Round(),
	}, nil
}
