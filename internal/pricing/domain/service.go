package domain

import (
	"context"

	"github.com/billora/billora/pkg/money"
)

// Resolution is the outcome of resolving a price for a quantity. LineAmount
// is authoritative; UnitAmount is display-only for graduated prices.
type Resolution struct {
	UnitAmount money.Money
	LineAmount money.Money
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Price, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Price, error)
	Archive(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Price, []PriceTier, error)
	ListByProduct(ctx context.Context, productID string) ([]Price, error)
	Resolve(ctx context.Context, priceID string, quantity int64) (Resolution, error)
}

type TierRequest struct {
	FromQuantity int64   `json:"from_quantity"`
	ToQuantity   *int64  `json:"to_quantity"`
	UnitAmount   string  `json:"unit_amount"`
}

type CreateRequest struct {
	ProductID    string         `json:"product_id"`
	Code         string         `json:"code"`
	Currency     string         `json:"currency"`
	PricingModel PricingModel   `json:"pricing_model"`
	UnitAmount   string         `json:"unit_amount"`
	Tiers        []TierRequest  `json:"tiers"`
	Metadata     map[string]any `json:"metadata"`
}

type UpdateRequest struct {
	Code       *string       `json:"code"`
	UnitAmount *string       `json:"unit_amount"`
	Tiers      []TierRequest `json:"tiers"`
	Active     *bool         `json:"active"`
}
