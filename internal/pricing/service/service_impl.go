package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/orgcontext"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/billora/billora/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	priceRepo   repository.Repository[pricingdomain.Price]
	tierRepo    repository.Repository[pricingdomain.PriceTier]
	productRepo repository.Repository[productdomain.Product]
}

func NewService(p ServiceParam) pricingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		genID: p.GenID,

		priceRepo:   repository.ProvideStore[pricingdomain.Price](p.DB),
		tierRepo:    repository.ProvideStore[pricingdomain.PriceTier](p.DB),
		productRepo: repository.ProvideStore[productdomain.Product](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req pricingdomain.CreateRequest) (*pricingdomain.Price, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	productID, err := parseID(req.ProductID)
	if err != nil {
		return nil, pricingdomain.ErrInvalidProduct
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, pricingdomain.ErrInvalidCode
	}

	currency := money.NormalizeCurrency(req.Currency)
	if len(currency) != 3 {
		return nil, pricingdomain.ErrInvalidCurrency
	}

	if !req.PricingModel.Valid() {
		return nil, pricingdomain.ErrInvalidPricingModel
	}

	unitAmount := decimal.Zero
	if req.PricingModel == pricingdomain.Flat {
		unitAmount, err = parseAmount(req.UnitAmount)
		if err != nil {
			return nil, pricingdomain.ErrInvalidUnitAmount
		}
	}

	product, err := s.productRepo.FindOne(ctx, &productdomain.Product{ID: productID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pricingdomain.ErrInvalidProduct
	}

	now := time.Now().UTC()
	price := &pricingdomain.Price{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		ProductID:    productID,
		Code:         code,
		Currency:     currency,
		PricingModel: req.PricingModel,
		UnitAmount:   unitAmount,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Metadata != nil {
		price.Metadata = datatypes.JSONMap(req.Metadata)
	}

	tiers, err := s.buildTiers(orgID, price.ID, req.Tiers, now)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.priceRepo.WithTrx(tx).Create(ctx, price); err != nil {
			return err
		}
		return s.tierRepo.WithTrx(tx).BatchCreate(ctx, tiers)
	})
	if err != nil {
		return nil, err
	}

	return price, nil
}

func (s *Service) Update(ctx context.Context, id string, req pricingdomain.UpdateRequest) (*pricingdomain.Price, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	priceID, err := parseID(id)
	if err != nil {
		return nil, pricingdomain.ErrInvalidID
	}

	var updated *pricingdomain.Price
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		price, err := s.priceRepo.WithTrx(tx).FindOne(ctx, &pricingdomain.Price{ID: priceID, OrgID: orgID})
		if err != nil {
			return err
		}
		if price == nil {
			return pricingdomain.ErrNotFound
		}
		if price.Archived() {
			return pricingdomain.ErrPriceArchived
		}

		now := time.Now().UTC()
		if req.Code != nil {
			code := strings.TrimSpace(*req.Code)
			if code == "" {
				return pricingdomain.ErrInvalidCode
			}
			price.Code = code
		}
		if req.UnitAmount != nil {
			amount, err := parseAmount(*req.UnitAmount)
			if err != nil {
				return pricingdomain.ErrInvalidUnitAmount
			}
			price.UnitAmount = amount
		}
		if req.Active != nil {
			price.Active = *req.Active
		}
		price.UpdatedAt = now

		if req.Tiers != nil {
			tiers, err := s.buildTiers(orgID, price.ID, req.Tiers, now)
			if err != nil {
				return err
			}
			if err := tx.Where("price_id = ?", price.ID).Delete(&pricingdomain.PriceTier{}).Error; err != nil {
				return err
			}
			if err := s.tierRepo.WithTrx(tx).BatchCreate(ctx, tiers); err != nil {
				return err
			}
		}

		if err := tx.Save(price).Error; err != nil {
			return err
		}
		updated = price
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Archive soft-deletes a price once a finalized document references it.
func (s *Service) Archive(ctx context.Context, id string) error {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return err
	}

	priceID, err := parseID(id)
	if err != nil {
		return pricingdomain.ErrInvalidID
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&pricingdomain.Price{}).
		Where("id = ? AND org_id = ? AND archived_at IS NULL", priceID, orgID).
		Updates(map[string]any{"archived_at": now, "active": false, "updated_at": now}).Error
}

func (s *Service) Get(ctx context.Context, id string) (*pricingdomain.Price, []pricingdomain.PriceTier, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	priceID, err := parseID(id)
	if err != nil {
		return nil, nil, pricingdomain.ErrInvalidID
	}

	price, tiers, err := s.load(ctx, s.db, orgID, priceID)
	if err != nil {
		return nil, nil, err
	}
	if price == nil {
		return nil, nil, pricingdomain.ErrNotFound
	}
	return price, tiers, nil
}

func (s *Service) ListByProduct(ctx context.Context, productID string) ([]pricingdomain.Price, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	pid, err := parseID(productID)
	if err != nil {
		return nil, pricingdomain.ErrInvalidProduct
	}

	items, err := s.priceRepo.Find(ctx, &pricingdomain.Price{OrgID: orgID, ProductID: pid})
	if err != nil {
		return nil, err
	}

	prices := make([]pricingdomain.Price, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		prices = append(prices, *item)
	}
	return prices, nil
}

func (s *Service) Resolve(ctx context.Context, priceID string, quantity int64) (pricingdomain.Resolution, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return pricingdomain.Resolution{}, err
	}

	pid, err := parseID(priceID)
	if err != nil {
		return pricingdomain.Resolution{}, pricingdomain.ErrInvalidID
	}

	price, tiers, err := s.load(ctx, s.db, orgID, pid)
	if err != nil {
		return pricingdomain.Resolution{}, err
	}
	if price == nil {
		return pricingdomain.Resolution{}, pricingdomain.ErrNotFound
	}

	return Resolve(price, tiers, quantity)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, orgID, priceID snowflake.ID) (*pricingdomain.Price, []pricingdomain.PriceTier, error) {
	price, err := s.priceRepo.WithTrx(db).FindOne(ctx, &pricingdomain.Price{ID: priceID, OrgID: orgID})
	if err != nil {
		return nil, nil, err
	}
	if price == nil {
		return nil, nil, nil
	}

	rows, err := s.tierRepo.WithTrx(db).Find(ctx, &pricingdomain.PriceTier{PriceID: priceID, OrgID: orgID})
	if err != nil {
		return nil, nil, err
	}
	tiers := make([]pricingdomain.PriceTier, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		tiers = append(tiers, *row)
	}
	return price, tiers, nil
}

func (s *Service) buildTiers(orgID, priceID snowflake.ID, reqs []pricingdomain.TierRequest, now time.Time) ([]*pricingdomain.PriceTier, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	tiers := make([]pricingdomain.PriceTier, 0, len(reqs))
	entities := make([]*pricingdomain.PriceTier, 0, len(reqs))
	for _, req := range reqs {
		amount, err := parseAmount(req.UnitAmount)
		if err != nil {
			return nil, pricingdomain.ErrInvalidUnitAmount
		}
		tier := pricingdomain.PriceTier{
			ID:           s.genID.Generate(),
			OrgID:        orgID,
			PriceID:      priceID,
			FromQuantity: req.FromQuantity,
			ToQuantity:   req.ToQuantity,
			UnitAmount:   amount,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		tiers = append(tiers, tier)
	}
	if err := ValidateTiers(sortedTiers(tiers)); err != nil {
		return nil, err
	}
	for i := range tiers {
		entities = append(entities, &tiers[i])
	}
	return entities, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, pricingdomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, pricingdomain.ErrInvalidUnitAmount
	}
	return amount, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
