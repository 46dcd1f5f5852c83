package service

import (
	"sort"

	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
)

// Resolve computes the unit and line amount for a price at the requested
// quantity. The line amount is authoritative; for graduated prices the unit
// amount is a rounded average kept for display.
func Resolve(price *pricingdomain.Price, tiers []pricingdomain.PriceTier, quantity int64) (pricingdomain.Resolution, error) {
	if quantity <= 0 {
		return pricingdomain.Resolution{}, pricingdomain.ErrInvalidQuantity
	}

	currency := price.Currency

	switch price.PricingModel {
	case pricingdomain.Flat:
		unit := money.New(price.UnitAmount, currency).Round()
		return pricingdomain.Resolution{
			UnitAmount: unit,
			LineAmount: unit.MulInt64(quantity).Round(),
		}, nil

	case pricingdomain.Volume:
		if len(tiers) == 0 {
			// Product whose default price is still being configured.
			return zeroResolution(currency), nil
		}
		ordered := sortedTiers(tiers)
		if err := ValidateTiers(ordered); err != nil {
			return pricingdomain.Resolution{}, err
		}
		for _, tier := range ordered {
			if tier.Contains(quantity) {
				unit := money.New(tier.UnitAmount, currency).Round()
				return pricingdomain.Resolution{
					UnitAmount: unit,
					LineAmount: unit.MulInt64(quantity).Round(),
				}, nil
			}
		}
		return pricingdomain.Resolution{}, pricingdomain.ErrQuantityOutOfRange

	case pricingdomain.Graduated:
		if len(tiers) == 0 {
			return zeroResolution(currency), nil
		}
		ordered := sortedTiers(tiers)
		if err := ValidateTiers(ordered); err != nil {
			return pricingdomain.Resolution{}, err
		}
		if quantity < firstChargeableUnit(ordered[0]) {
			return pricingdomain.Resolution{}, pricingdomain.ErrQuantityOutOfRange
		}
		// A bounded last tier caps the billable quantity, same as volume.
		if last := ordered[len(ordered)-1]; last.ToQuantity != nil && quantity > *last.ToQuantity {
			return pricingdomain.Resolution{}, pricingdomain.ErrQuantityOutOfRange
		}

		line := money.Zero(currency)
		for _, tier := range ordered {
			units := unitsInTier(tier, quantity)
			if units <= 0 {
				continue
			}
			line = line.Add(money.New(tier.UnitAmount, currency).MulInt64(units))
		}
		line = line.Round()

		unit := money.New(
			line.Amount.Div(decimal.NewFromInt(quantity)),
			currency,
		).Round()

		return pricingdomain.Resolution{UnitAmount: unit, LineAmount: line}, nil

	default:
		return pricingdomain.Resolution{}, pricingdomain.ErrInvalidPricingModel
	}
}

// ValidateTiers checks ordering, contiguity and open-endedness. Tiers must
// already be sorted by FromQuantity.
func ValidateTiers(tiers []pricingdomain.PriceTier) error {
	for i, tier := range tiers {
		if tier.ToQuantity != nil && *tier.ToQuantity < tier.FromQuantity {
			return pricingdomain.ErrTierOrder
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if prev.ToQuantity == nil {
			return pricingdomain.ErrTierNotLast
		}
		switch {
		case tier.FromQuantity == *prev.ToQuantity+1:
			// contiguous
		case tier.FromQuantity <= *prev.ToQuantity:
			return pricingdomain.ErrTierOverlap
		default:
			return pricingdomain.ErrTierGap
		}
	}
	return nil
}

func sortedTiers(tiers []pricingdomain.PriceTier) []pricingdomain.PriceTier {
	ordered := make([]pricingdomain.PriceTier, len(tiers))
	copy(ordered, tiers)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].FromQuantity < ordered[j].FromQuantity
	})
	return ordered
}

// firstChargeableUnit is the lowest billable quantity of a tier: units are
// counted from 1 even when the tier range starts at 0.
func firstChargeableUnit(tier pricingdomain.PriceTier) int64 {
	if tier.FromQuantity < 1 {
		return 1
	}
	return tier.FromQuantity
}

// unitsInTier counts how many of quantity's units fall inside the tier.
func unitsInTier(tier pricingdomain.PriceTier, quantity int64) int64 {
	from := firstChargeableUnit(tier)
	to := quantity
	if tier.ToQuantity != nil && *tier.ToQuantity < to {
		to = *tier.ToQuantity
	}
	if to < from {
		return 0
	}
	return to - from + 1
}

func zeroResolution(currency string) pricingdomain.Resolution {
	return pricingdomain.Resolution{
		UnitAmount: money.Zero(currency),
		LineAmount: money.Zero(currency),
	}
}
