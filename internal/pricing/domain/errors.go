package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidProduct      = errors.New("invalid_product")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidPricingModel = errors.New("invalid_pricing_model")
	ErrInvalidUnitAmount   = errors.New("invalid_unit_amount")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrPriceArchived       = errors.New("price_archived")

	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrQuantityOutOfRange = errors.New("quantity_out_of_range")
	ErrTierOrder          = errors.New("tier_order")
	ErrTierGap            = errors.New("tier_gap")
	ErrTierOverlap        = errors.New("tier_overlap")
	ErrTierNotLast        = errors.New("tier_open_ended_not_last")
)
