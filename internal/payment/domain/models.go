package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPaymentID  = errors.New("invalid_payment_id")
	ErrPaymentNotFound   = errors.New("payment_not_found")
	ErrUnknownProvider   = errors.New("unknown_payment_provider")
	ErrInvalidResult     = errors.New("invalid_payment_result")
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is one checkout attempt against an invoice. A failed attempt is
// kept as a record, it never rolls back the invoice it was created for.
type Payment struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrgID         snowflake.ID    `json:"org_id" gorm:"index;not null"`
	InvoiceID     snowflake.ID    `json:"invoice_id" gorm:"index;not null"`
	Provider      string          `json:"provider" gorm:"not null"`
	TransactionID string          `json:"transaction_id" gorm:"index"`
	RedirectURL   string          `json:"redirect_url"`
	Status        PaymentStatus   `json:"status" gorm:"not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(20,6);not null"`
	Currency      string          `json:"currency" gorm:"not null"`
	FailureReason string          `json:"failure_reason,omitempty"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// CheckoutRequest is what a provider needs to open a checkout session.
type CheckoutRequest struct {
	InvoiceID snowflake.ID
	Number    string
	Amount    decimal.Decimal
	Currency  string
}

type CheckoutResult struct {
	TransactionID string
	RedirectURL   string
}

// Provider is the external payment collaborator. Checkout is synchronous
// and fallible; the outcome of the payment itself arrives later through a
// webhook.
type Provider interface {
	Name() string
	Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
}

// ResultRequest is a webhook-delivered payment outcome.
type ResultRequest struct {
	TransactionID string          `json:"transaction_id" binding:"required"`
	Succeeded     bool            `json:"succeeded"`
	Amount        decimal.Decimal `json:"amount"`
	ReceivedAt    time.Time       `json:"received_at"`
}

// Service records payment outcomes and feeds them into the owning
// invoice's totals.
type Service interface {
	HandleResult(ctx context.Context, req ResultRequest) error
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}
