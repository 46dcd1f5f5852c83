// Package domain contains pricing models and the price resolver contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PricingModel string

const (
	Flat      PricingModel = "FLAT"
	Volume    PricingModel = "VOLUME"
	Graduated PricingModel = "GRADUATED"
)

func (m PricingModel) Valid() bool {
	switch m {
	case Flat, Volume, Graduated:
		return true
	}
	return false
}

// Price belongs to a product. Flat prices carry their own unit amount;
// volume and graduated prices derive amounts from their tiers.
type Price struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID        snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;index"`
	ProductID    snowflake.ID      `json:"product_id" gorm:"column:product_id;not null;index"`
	Code         string            `json:"code" gorm:"type:text;not null"`
	Currency     string            `json:"currency" gorm:"type:text;not null"`
	PricingModel PricingModel      `json:"pricing_model" gorm:"type:text;not null"`
	UnitAmount   decimal.Decimal   `json:"unit_amount" gorm:"type:numeric(20,6);not null;default:0"`
	Active       bool              `json:"active" gorm:"not null;default:true"`
	ArchivedAt   *time.Time        `json:"archived_at,omitempty" gorm:""`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Price) TableName() string { return "prices" }

// Archived reports whether the price was soft-deleted after being referenced
// by a finalized document. Archived prices reject further edits.
func (p *Price) Archived() bool { return p.ArchivedAt != nil }

// PriceTier is one quantity sub-range of a volume or graduated price.
// Tiers for a price are contiguous and non-overlapping; the last tier may be
// open-ended (ToQuantity nil).
type PriceTier struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID        snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	PriceID      snowflake.ID    `json:"price_id" gorm:"column:price_id;not null;index"`
	FromQuantity int64           `json:"from_quantity" gorm:"not null"`
	ToQuantity   *int64          `json:"to_quantity,omitempty" gorm:""`
	UnitAmount   decimal.Decimal `json:"unit_amount" gorm:"type:numeric(20,6);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceTier) TableName() string { return "price_tiers" }

// Contains reports whether quantity falls inside the tier's range.
func (t PriceTier) Contains(quantity int64) bool {
	if quantity < t.FromQuantity {
		return false
	}
	return t.ToQuantity == nil || quantity <= *t.ToQuantity
}
