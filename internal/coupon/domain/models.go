// Package domain contains coupon models. A coupon is either a fixed amount
// or a percentage, never both, and is immutable after creation except for
// its display name.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Coupon struct {
	ID         snowflake.ID     `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID     `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name       string           `json:"name" gorm:"type:text;not null"`
	Amount     *decimal.Decimal `json:"amount,omitempty" gorm:"type:numeric(20,6)"`
	Percentage *decimal.Decimal `json:"percentage,omitempty" gorm:"type:numeric(8,4)"`
	Currency   string           `json:"currency,omitempty" gorm:"type:text"`
	CreatedAt  time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Coupon) TableName() string { return "coupons" }

// Fixed reports whether the coupon is a fixed-amount discount.
func (c *Coupon) Fixed() bool { return c.Amount != nil }

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Coupon, error)
	Rename(ctx context.Context, id, name string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Get(ctx context.Context, id string) (*Coupon, error)
}

type CreateRequest struct {
	Name       string  `json:"name"`
	Amount     *string `json:"amount"`
	Percentage *string `json:"percentage"`
	Currency   string  `json:"currency"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidPercentage   = errors.New("invalid_percentage")
	ErrAmountAndPercentage = errors.New("amount_and_percentage_exclusive")
	ErrCurrencyRequired    = errors.New("currency_required")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
