package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TaxRate is an org-scoped tax rate definition. Percentage is expressed the
// way invoices display it (20 means 20%).
type TaxRate struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index" json:"organization_id"`

	Name       string          `gorm:"type:text;not null" json:"name"`
	Percentage decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"percentage"`

	Description *string `gorm:"type:text" json:"description,omitempty"`
	IsEnabled   bool    `gorm:"column:is_enabled;not null;default:true" json:"is_enabled"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaxRate) TableName() string { return "tax_rates" }

func (t *TaxRate) Validate() error {
	if t.Name == "" {
		return ErrInvalidName
	}
	if t.Percentage.IsNegative() {
		return ErrInvalidTaxRate
	}
	return nil
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*TaxRate, error)
	List(ctx context.Context) ([]TaxRate, error)
	Get(ctx context.Context, id string) (*TaxRate, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

type CreateRequest struct {
	Name        string  `json:"name"`
	Percentage  string  `json:"percentage"`
	Description *string `json:"description"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
)
