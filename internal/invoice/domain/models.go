package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// InvoiceHead is the logical invoice identity across revisions. RootID is
// the first revision ever created; CurrentID tracks the latest non-draft
// revision, nil while everything under the head is still draft or voided.
type InvoiceHead struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID  `json:"org_id" gorm:"index;not null"`
	RootID    snowflake.ID  `json:"root_id" gorm:"not null"`
	CurrentID *snowflake.ID `json:"current_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (InvoiceHead) TableName() string { return "invoice_heads" }

// Invoice is one revision under a head. Totals are derived fields written
// only by the recalculation pass; nothing else may touch them.
type Invoice struct {
	ID                 snowflake.ID     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID              snowflake.ID     `json:"org_id" gorm:"index;uniqueIndex:idx_invoice_org_number,priority:1;not null"`
	HeadID             snowflake.ID     `json:"head_id" gorm:"index;not null"`
	CustomerID         snowflake.ID     `json:"customer_id" gorm:"index;not null"`
	PreviousRevisionID *snowflake.ID    `json:"previous_revision_id,omitempty"`
	Number             *string          `json:"number,omitempty" gorm:"uniqueIndex:idx_invoice_org_number,priority:2"`
	Status             lifecycle.Status `json:"status" gorm:"index;not null"`
	Currency           string           `json:"currency" gorm:"not null"`
	Memo               string           `json:"memo,omitempty"`

	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:numeric(20,6);not null"`
	TotalDiscount     decimal.Decimal `json:"total_discount" gorm:"type:numeric(20,6);not null"`
	TotalExcludingTax decimal.Decimal `json:"total_excluding_tax" gorm:"type:numeric(20,6);not null"`
	TotalTax          decimal.Decimal `json:"total_tax" gorm:"type:numeric(20,6);not null"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:numeric(20,6);not null"`
	TotalCredited     decimal.Decimal `json:"total_credited" gorm:"type:numeric(20,6);not null"`
	TotalPaid         decimal.Decimal `json:"total_paid" gorm:"type:numeric(20,6);not null"`
	Outstanding       decimal.Decimal `json:"outstanding" gorm:"type:numeric(20,6);not null"`

	DueAt       *time.Time `json:"due_at,omitempty"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Lines []InvoiceLine `json:"lines,omitempty" gorm:"-"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceLine carries an explicit unit amount or a price reference. The
// credited trackers record how much of the line credit notes consumed.
type InvoiceLine struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID       snowflake.ID  `json:"org_id" gorm:"index;not null"`
	InvoiceID   snowflake.ID  `json:"invoice_id" gorm:"index;not null"`
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

	CreditedQuantity    int64           `json:"credited_quantity" gorm:"not null"`
	CreditedAmount      decimal.Decimal `json:"credited_amount" gorm:"type:numeric(20,6);not null"`
	OutstandingQuantity int64           `json:"outstanding_quantity" gorm:"not null"`
	OutstandingAmount   decimal.Decimal `json:"outstanding_amount" gorm:"type:numeric(20,6);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InvoiceLine) TableName() string { return "invoice_lines" }

// InvoiceDiscount attaches a coupon to the invoice or, when LineID is set,
// to one line. Amount is the allocated contribution, written by recalc.
type InvoiceDiscount struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID    `json:"org_id" gorm:"index;not null"`
	InvoiceID snowflake.ID    `json:"invoice_id" gorm:"index;not null"`
	LineID    *snowflake.ID   `json:"line_id,omitempty" gorm:"index"`
	CouponID  snowflake.ID    `json:"coupon_id" gorm:"not null"`
	Position  int             `json:"position" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,6);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

func (InvoiceDiscount) TableName() string { return "invoice_discounts" }

// InvoiceTaxLine attaches a tax rate the same way.
type InvoiceTaxLine struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID    `json:"org_id" gorm:"index;not null"`
	InvoiceID snowflake.ID    `json:"invoice_id" gorm:"index;not null"`
	LineID    *snowflake.ID   `json:"line_id,omitempty" gorm:"index"`
	TaxRateID snowflake.ID    `json:"tax_rate_id" gorm:"not null"`
	Position  int             `json:"position" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,6);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

func (InvoiceTaxLine) TableName() string { return "invoice_tax_lines" }
