package billing

import (
	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// AllocateDiscounts applies coupons sequentially against base. Percentage
// coupons compound: each one is computed on whatever the previous coupons
// left, not on the original base. Every contribution is rounded to the
// currency's minor unit and clamped so the running remainder never goes
// negative.
func AllocateDiscounts(base money.Money, coupons []CouponSpec) (DiscountAllocation, error) {
	remaining := base
	out := DiscountAllocation{
		TotalDiscount: money.Zero(base.Currency),
	}
	for _, c := range coupons {
		var contribution money.Money
		switch {
		case c.Amount != nil:
			if c.Amount.Currency != base.Currency {
				return DiscountAllocation{}, ErrCurrencyMismatch
			}
			contribution = c.Amount.Round()
		case c.Percentage != nil:
			contribution = remaining.MulDecimal(c.Percentage.Div(oneHundred)).Round()
		default:
			contribution = money.Zero(base.Currency)
		}
		contribution = contribution.ClampZero().Min(remaining)
		remaining = remaining.Sub(contribution)
		out.Entries = append(out.Entries, AllocationEntry{
			ID:     c.ID,
			Name:   c.Name,
			Amount: contribution,
		})
		out.TotalDiscount = out.TotalDiscount.Add(contribution)
	}
	out.ExcludingTax = remaining
	return out, nil
}

// AllocateTaxes applies tax rates independently against the discounted
// base. Rates do not compound: each contribution is base × rate, rounded
// on its own, then summed.
func AllocateTaxes(base money.Money, rates []TaxRateSpec) TaxAllocation {
	out := TaxAllocation{
		TotalTax: money.Zero(base.Currency),
	}
	for _, r := range rates {
		contribution := base.MulDecimal(r.Percentage.Div(oneHundred)).Round()
		out.Entries = append(out.Entries, AllocationEntry{
			ID:     r.ID,
			Name:   r.Name,
			Amount: contribution,
		})
		out.TotalTax = out.TotalTax.Add(contribution)
	}
	out.TotalAmount = base.Add(out.TotalTax)
	return out
}
