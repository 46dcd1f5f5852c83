package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidCreditNoteID  = errors.New("invalid_credit_note_id")
	ErrCreditNoteNotFound   = errors.New("credit_note_not_found")
	ErrInvoiceNotCreditable = errors.New("invoice_not_creditable")
	ErrEmptyCreditNote      = errors.New("credit_note_has_no_lines")
	ErrQuantityAndAmount    = errors.New("quantity_and_amount_are_exclusive")
	ErrMissingQuantityOrAmount = errors.New("quantity_or_amount_required")
	ErrInvalidCreditRequest = errors.New("invalid_credit_request")
	ErrExceedsOutstanding   = errors.New("credit_exceeds_outstanding")
	ErrNumberExhausted      = errors.New("credit_note_number_retries_exhausted")
)

// Service manages credit notes against finalized invoices. Issuing one
// consumes the referenced invoice lines' outstanding balances and lowers
// the invoice's outstanding in the same transaction.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreditNote, error)
	List(ctx context.Context, req ListRequest) ([]CreditNote, error)
	Get(ctx context.Context, id string) (*CreditNote, error)
	Issue(ctx context.Context, id string) (*CreditNote, error)
	Void(ctx context.Context, id string) (*CreditNote, error)
}

type CreateRequest struct {
	InvoiceID string        `json:"invoice_id" binding:"required"`
	Reason    string        `json:"reason"`
	Lines     []LineRequest `json:"lines" binding:"required"`
}

// LineRequest credits one invoice line by quantity or by amount, never
// both.
type LineRequest struct {
	InvoiceLineID string           `json:"invoice_line_id" binding:"required"`
	Quantity      *int64           `json:"quantity"`
	Amount        *decimal.Decimal `json:"amount"`
}

type ListRequest struct {
	InvoiceID *string `form:"invoice_id"`
}
