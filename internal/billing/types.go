// Package billing implements the document calculation engine: discount and
// tax allocation plus the full document recalculation. Everything here is a
// pure computation over values supplied by the caller; persistence and
// locking stay in the document services.
package billing

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	ErrMissingAmount    = errors.New("missing_amount")
)

// CouponSpec is a discount as the allocator sees it: fixed amount or
// percentage, never both.
type CouponSpec struct {
	ID         snowflake.ID
	Name       string
	Amount     *money.Money
	Percentage *decimal.Decimal
}

// TaxRateSpec is a tax rate as the allocator sees it. Percentage is
// human-scaled (20 means 20%).
type TaxRateSpec struct {
	ID         snowflake.ID
	Name       string
	Percentage decimal.Decimal
}

// AllocationEntry is one coupon's or tax rate's rounded contribution.
type AllocationEntry struct {
	ID     snowflake.ID
	Name   string
	Amount money.Money
}

// DiscountAllocation is the outcome of allocating coupons against a base.
type DiscountAllocation struct {
	Entries       []AllocationEntry
	TotalDiscount money.Money
	ExcludingTax  money.Money
}

// TaxAllocation is the outcome of allocating tax rates against a
// discounted base.
type TaxAllocation struct {
	Entries     []AllocationEntry
	TotalTax    money.Money
	TotalAmount money.Money
}

// LineInput is one document line before recalculation. Either Price (with
// its tiers) or UnitAmount must be set; Price wins when both are present.
type LineInput struct {
	ID         snowflake.ID
	Quantity   int64
	UnitAmount *money.Money
	Price      *pricingdomain.Price
	Tiers      []pricingdomain.PriceTier
	Discounts  []CouponSpec
	TaxRates   []TaxRateSpec
}

// DocumentInput is a document snapshot handed to the recalculator.
// TotalCredited and TotalPaid only matter for invoices; other document
// types leave them zero.
type DocumentInput struct {
	Currency      string
	Lines         []LineInput
	Discounts     []CouponSpec
	TaxRates      []TaxRateSpec
	TotalCredited money.Money
	TotalPaid     money.Money
}

// LineTotals carries every derived amount for one line.
type LineTotals struct {
	ID            snowflake.ID
	UnitAmount    money.Money
	Amount        money.Money
	TotalDiscount money.Money
	ExcludingTax  money.Money
	TotalTax      money.Money
	TotalAmount   money.Money
	Discounts     []AllocationEntry
	Taxes         []AllocationEntry
}

// DocumentTotals carries every derived amount for the document. Totals are
// always produced here, never hand-edited.
type DocumentTotals struct {
	Lines         []LineTotals
	Subtotal      money.Money
	TotalDiscount money.Money
	ExcludingTax  money.Money
	TotalTax      money.Money
	TotalAmount   money.Money
	Outstanding   money.Money
	Discounts     []AllocationEntry
	Taxes         []AllocationEntry
}
