package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// CreditNote credits part of a finalized invoice. Totals are derived from
// the referenced invoice lines by the deriver and frozen at issue time.
type CreditNote struct {
	ID         snowflake.ID     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID      snowflake.ID     `json:"org_id" gorm:"index;uniqueIndex:idx_creditnote_org_number,priority:1;not null"`
	InvoiceID  snowflake.ID     `json:"invoice_id" gorm:"index;not null"`
	CustomerID snowflake.ID     `json:"customer_id" gorm:"index;not null"`
	Number     *string          `json:"number,omitempty" gorm:"uniqueIndex:idx_creditnote_org_number,priority:2"`
	Status     lifecycle.Status `json:"status" gorm:"index;not null"`
	Currency   string           `json:"currency" gorm:"not null"`
	Reason     string           `json:"reason,omitempty"`

	TotalExcludingTax decimal.Decimal `json:"total_excluding_tax" gorm:"type:numeric(20,6);not null"`
	TotalTax          decimal.Decimal `json:"total_tax" gorm:"type:numeric(20,6);not null"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:numeric(20,6);not null"`

	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	VoidedAt  *time.Time `json:"voided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Lines []CreditNoteLine `json:"lines,omitempty" gorm:"-"`
}

func (CreditNote) TableName() string { return "credit_notes" }

// CreditNoteLine is the ratio-scaled image of one invoice line.
type CreditNoteLine struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID         snowflake.ID    `json:"org_id" gorm:"index;not null"`
	CreditNoteID  snowflake.ID    `json:"credit_note_id" gorm:"index;not null"`
	InvoiceLineID snowflake.ID    `json:"invoice_line_id" gorm:"index;not null"`
	Description   string          `json:"description"`
	Quantity      int64           `json:"quantity" gorm:"not null"`
	Ratio         decimal.Decimal `json:"ratio" gorm:"type:numeric(12,10);not null"`

	ExcludingTax decimal.Decimal `json:"excluding_tax" gorm:"type:numeric(20,6);not null"`
	Tax          decimal.Decimal `json:"tax" gorm:"type:numeric(20,6);not null"`
	Total        decimal.Decimal `json:"total" gorm:"type:numeric(20,6);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CreditNoteLine) TableName() string { return "credit_note_lines" }
