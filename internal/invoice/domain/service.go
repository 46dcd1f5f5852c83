package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service manages invoice drafts, the revision chain and the lifecycle.
// Every mutation recalculates and persists the document's totals in the
// same transaction.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*Invoice, error)

	AddLine(ctx context.Context, invoiceID string, req LineRequest) (*Invoice, error)
	UpdateLine(ctx context.Context, invoiceID, lineID string, req LineRequest) (*Invoice, error)
	RemoveLine(ctx context.Context, invoiceID, lineID string) (*Invoice, error)

	AttachDiscount(ctx context.Context, invoiceID string, req AttachDiscountRequest) (*Invoice, error)
	DetachDiscount(ctx context.Context, invoiceID, discountID string) (*Invoice, error)
	AttachTaxRate(ctx context.Context, invoiceID string, req AttachTaxRateRequest) (*Invoice, error)
	DetachTaxRate(ctx context.Context, invoiceID, taxLineID string) (*Invoice, error)

	Finalize(ctx context.Context, id string) (*Invoice, error)
	Void(ctx context.Context, id string) (*Invoice, error)
	Revise(ctx context.Context, id string) (*Invoice, error)

	// ApplyPaymentResult feeds a webhook-delivered payment outcome into
	// the invoice. A successful amount raises total_paid, recomputes
	// outstanding and moves the invoice to paid when it reaches zero.
	ApplyPaymentResult(ctx context.Context, invoiceID snowflake.ID, succeeded bool, amount decimal.Decimal, receivedAt time.Time) (*Invoice, error)

	// CreateDraftFromLines seeds a new draft invoice (with its own head)
	// from prebuilt lines. Quote acceptance uses this.
	CreateDraftFromLines(ctx context.Context, customerID snowflake.ID, currency string, lines []LineRequest) (*Invoice, error)

	// RecalculateInTx rebuilds the invoice's derived totals inside the
	// caller's transaction. Credit note issuance uses this after writing
	// the credited trackers.
	RecalculateInTx(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) error
}

type CreateRequest struct {
	CustomerID string     `json:"customer_id" binding:"required"`
	Currency   string     `json:"currency" binding:"required"`
	Memo       string     `json:"memo"`
	DueAt      *time.Time `json:"due_at"`
	Lines      []LineRequest `json:"lines"`
}

// LineRequest sets either PriceID or UnitAmount. Quantity is required and
// must be positive.
type LineRequest struct {
	Description string           `json:"description"`
	Quantity    int64            `json:"quantity" binding:"required"`
	PriceID     *string          `json:"price_id"`
	UnitAmount  *decimal.Decimal `json:"unit_amount"`
}

type AttachDiscountRequest struct {
	CouponID string  `json:"coupon_id" binding:"required"`
	LineID   *string `json:"line_id"`
}

type AttachTaxRateRequest struct {
	TaxRateID string  `json:"tax_rate_id" binding:"required"`
	LineID    *string `json:"line_id"`
}

type ListRequest struct {
	Status     *lifecycle.Status `form:"status"`
	CustomerID *string           `form:"customer_id"`
	HeadID     *string           `form:"head_id"`
	CreatedFrom *time.Time       `form:"created_from"`
	CreatedTo   *time.Time       `form:"created_to"`
}

type ListResponse struct {
	Invoices []Invoice `json:"invoices"`
}
