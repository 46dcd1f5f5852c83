package domain

import (
	"context"
	"errors"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidQuoteID      = errors.New("invalid_quote_id")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrQuoteNotFound       = errors.New("quote_not_found")
	ErrQuoteLineNotFound   = errors.New("quote_line_not_found")
	ErrEmptyQuote          = errors.New("quote_has_no_lines")
	ErrCouponNotFound      = errors.New("coupon_not_found")
	ErrTaxRateNotFound     = errors.New("tax_rate_not_found")
	ErrNumberExhausted     = errors.New("quote_number_retries_exhausted")
)

// Service manages quotes through draft, open and the accept conversion.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Quote, error)
	List(ctx context.Context, req ListRequest) ([]Quote, error)
	Get(ctx context.Context, id string) (*Quote, error)

	AddLine(ctx context.Context, quoteID string, req invoicedomain.LineRequest) (*Quote, error)
	RemoveLine(ctx context.Context, quoteID, lineID string) (*Quote, error)
	AttachDiscount(ctx context.Context, quoteID, couponID string) (*Quote, error)
	AttachTaxRate(ctx context.Context, quoteID, taxRateID string) (*Quote, error)

	Open(ctx context.Context, id string) (*Quote, error)

	// Accept freezes the open quote and seeds a new draft invoice from
	// its lines. The returned quote carries the created invoice's ID.
	Accept(ctx context.Context, id string) (*Quote, error)
	Cancel(ctx context.Context, id string) (*Quote, error)
}

type CreateRequest struct {
	CustomerID string                      `json:"customer_id" binding:"required"`
	Currency   string                      `json:"currency" binding:"required"`
	Memo       string                      `json:"memo"`
	Lines      []invoicedomain.LineRequest `json:"lines"`
}

type ListRequest struct {
	Status     *lifecycle.Status `form:"status"`
	CustomerID *string           `form:"customer_id"`
}
