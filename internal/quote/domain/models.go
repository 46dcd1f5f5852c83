package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// Quote is a priced proposal. Accepting an open quote converts it into a
// fresh draft invoice; the quote itself is then frozen.
type Quote struct {
	ID         snowflake.ID     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID      snowflake.ID     `json:"org_id" gorm:"index;uniqueIndex:idx_quote_org_number,priority:1;not null"`
	CustomerID snowflake.ID     `json:"customer_id" gorm:"index;not null"`
	InvoiceID  *snowflake.ID    `json:"invoice_id,omitempty"`
	Number     *string          `json:"number,omitempty" gorm:"uniqueIndex:idx_quote_org_number,priority:2"`
	Status     lifecycle.Status `json:"status" gorm:"index;not null"`
	Currency   string           `json:"currency" gorm:"not null"`
	Memo       string           `json:"memo,omitempty"`

	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:numeric(20,6);not null"`
	TotalDiscount     decimal.Decimal `json:"total_discount" gorm:"type:numeric(20,6);not null"`
	TotalExcludingTax decimal.Decimal `json:"total_excluding_tax" gorm:"type:numeric(20,6);not null"`
	TotalTax          decimal.Decimal `json:"total_tax" gorm:"type:numeric(20,6);not null"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:numeric(20,6);not null"`

	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CanceledAt *time.Time `json:"canceled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Lines []QuoteLine `json:"lines,omitempty" gorm:"-"`
}

func (Quote) TableName() string { return "quotes" }

type QuoteLine struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID       snowflake.ID  `json:"org_id" gorm:"index;not null"`
	QuoteID     snowflake.ID  `json:"quote_id" gorm:"index;not null"`
	PriceID     *snowflake.ID `json:"price_id,omitempty"`
	Description string        `json:"description"`
	Quantity    int64         `json:"quantity" gorm:"not null"`
	Position    int           `json:"position" gorm:"not null"`

	UnitAmount        decimal.Decimal `json:"unit_amount" gorm:"type:numeric(20,6);not null"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(20,6);not null"`
	TotalDiscount     decimal.Decimal `json:"total_discount" gorm:"type:numeric(20,6);not null"`
	TotalExcludingTax decimal.Decimal `json:"total_excluding_tax" gorm:"type:numeric(20,6);not null"`
	TotalTax          decimal.Decimal `json:"total_tax" gorm:"type:numeric(20,6);not null"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:numeric(20,6);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuoteLine) TableName() string { return "quote_lines" }

// QuoteDiscount and QuoteTaxLine are document-level attachments; quotes do
// not carry line-level allocations.
type QuoteDiscount struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID    `json:"org_id" gorm:"index;not null"`
	QuoteID   snowflake.ID    `json:"quote_id" gorm:"index;not null"`
	CouponID  snowflake.ID    `json:"coupon_id" gorm:"not null"`
	Position  int             `json:"position" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,6);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

func (QuoteDiscount) TableName() string { return "quote_discounts" }

type QuoteTaxLine struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID    `json:"org_id" gorm:"index;not null"`
	QuoteID   snowflake.ID    `json:"quote_id" gorm:"index;not null"`
	TaxRateID snowflake.ID    `json:"tax_rate_id" gorm:"not null"`
	Position  int             `json:"position" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,6);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

func (QuoteTaxLine) TableName() string { return "quote_tax_lines" }
