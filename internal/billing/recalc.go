package billing

import (
	pricingservice "github.com/billora/billora/internal/pricing/service"
	"github.com/billora/billora/pkg/money"
)

// Recalculate derives every amount on the document from its lines and
// attachments. It is a pure function of its input: running it twice over
// the same document yields identical totals, and it never mutates the
// input. Document services call it inside the same transaction that
// persists the result.
func Recalculate(doc DocumentInput) (DocumentTotals, error) {
	out := DocumentTotals{
		Subtotal: money.Zero(doc.Currency),
	}

	for _, line := range doc.Lines {
		lt, err := recalcLine(doc.Currency, line)
		if err != nil {
			return DocumentTotals{}, err
		}
		out.Lines = append(out.Lines, lt)
		out.Subtotal = out.Subtotal.Add(lt.Amount)
	}

	lineDiscounts := money.Zero(doc.Currency)
	lineTaxes := money.Zero(doc.Currency)
	for _, lt := range out.Lines {
		lineDiscounts = lineDiscounts.Add(lt.TotalDiscount)
		lineTaxes = lineTaxes.Add(lt.TotalTax)
	}

	// Document-level coupons apply on what the line-level ones left.
	docDiscounts, err := AllocateDiscounts(out.Subtotal.Sub(lineDiscounts), doc.Discounts)
	if err != nil {
		return DocumentTotals{}, err
	}
	out.Discounts = docDiscounts.Entries
	out.TotalDiscount = lineDiscounts.Add(docDiscounts.TotalDiscount)
	out.ExcludingTax = docDiscounts.ExcludingTax

	docTaxes := AllocateTaxes(out.ExcludingTax, doc.TaxRates)
	out.Taxes = docTaxes.Entries
	out.TotalTax = lineTaxes.Add(docTaxes.TotalTax)
	out.TotalAmount = out.ExcludingTax.Add(out.TotalTax)

	out.Outstanding = out.TotalAmount.
		Sub(doc.TotalCredited).
		Sub(doc.TotalPaid).
		ClampZero()

	return out, nil
}

func recalcLine(currency string, line LineInput) (LineTotals, error) {
	lt := LineTotals{ID: line.ID}

	switch {
	case line.Price != nil:
		if line.Price.Currency != currency {
			return LineTotals{}, ErrCurrencyMismatch
		}
		res, err := pricingservice.Resolve(line.Price, line.Tiers, line.Quantity)
		if err != nil {
			return LineTotals{}, err
		}
		lt.UnitAmount = res.UnitAmount
		lt.Amount = res.LineAmount.Round()
	case line.UnitAmount != nil:
		if line.UnitAmount.Currency != currency {
			return LineTotals{}, ErrCurrencyMismatch
		}
		lt.UnitAmount = *line.UnitAmount
		lt.Amount = line.UnitAmount.MulInt64(line.Quantity).Round()
	default:
		return LineTotals{}, ErrMissingAmount
	}

	discounts, err := AllocateDiscounts(lt.Amount, line.Discounts)
	if err != nil {
		return LineTotals{}, err
	}
	lt.Discounts = discounts.Entries
	lt.TotalDiscount = discounts.TotalDiscount
	lt.ExcludingTax = discounts.ExcludingTax

	taxes := AllocateTaxes(lt.ExcludingTax, line.TaxRates)
	lt.Taxes = taxes.Entries
	lt.TotalTax = taxes.TotalTax
	lt.TotalAmount = taxes.TotalAmount

	return lt, nil
}
