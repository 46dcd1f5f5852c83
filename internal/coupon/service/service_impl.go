package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	"github.com/billora/billora/internal/orgcontext"
	"github.com/billora/billora/pkg/money"
	"github.com/billora/billora/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	repo  repository.Repository[coupondomain.Coupon]
}

func NewService(p ServiceParam) coupondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("coupon.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[coupondomain.Coupon](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req coupondomain.CreateRequest) (*coupondomain.Coupon, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, coupondomain.ErrInvalidName
	}

	if req.Amount != nil && req.Percentage != nil {
		return nil, coupondomain.ErrAmountAndPercentage
	}
	if req.Amount == nil && req.Percentage == nil {
		return nil, coupondomain.ErrInvalidAmount
	}

	entity := &coupondomain.Coupon{
		ID:    s.genID.Generate(),
		OrgID: orgID,
		Name:  name,
	}

	if req.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*req.Amount))
		if err != nil || amount.IsNegative() {
			return nil, coupondomain.ErrInvalidAmount
		}
		currency := money.NormalizeCurrency(req.Currency)
		if len(currency) != 3 {
			return nil, coupondomain.ErrCurrencyRequired
		}
		entity.Amount = &amount
		entity.Currency = currency
	}

	if req.Percentage != nil {
		pct, err := decimal.NewFromString(strings.TrimSpace(*req.Percentage))
		if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, coupondomain.ErrInvalidPercentage
		}
		entity.Percentage = &pct
	}

	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Rename is the only mutation allowed after creation.
func (s *Service) Rename(ctx context.Context, id, name string) (*coupondomain.Coupon, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	couponID, err := parseID(id)
	if err != nil {
		return nil, coupondomain.ErrInvalidID
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, coupondomain.ErrInvalidName
	}

	entity, err := s.repo.FindOne(ctx, &coupondomain.Coupon{ID: couponID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, coupondomain.ErrNotFound
	}

	entity.Name = name
	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, couponID, map[string]any{
		"name":       entity.Name,
		"updated_at": entity.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context) ([]coupondomain.Coupon, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.Find(ctx, &coupondomain.Coupon{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	coupons := make([]coupondomain.Coupon, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		coupons = append(coupons, *item)
	}
	return coupons, nil
}

func (s *Service) Get(ctx context.Context, id string) (*coupondomain.Coupon, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	couponID, err := parseID(id)
	if err != nil {
		return nil, coupondomain.ErrInvalidID
	}

	entity, err := s.repo.FindOne(ctx, &coupondomain.Coupon{ID: couponID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, coupondomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, coupondomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
