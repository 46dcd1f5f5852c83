package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/orgcontext"
	taxdomain "github.com/billora/billora/internal/tax/domain"
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
	repo  repository.Repository[taxdomain.TaxRate]
}

func NewService(p ServiceParam) taxdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tax.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[taxdomain.TaxRate](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.TaxRate, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	pct, err := decimal.NewFromString(strings.TrimSpace(req.Percentage))
	if err != nil {
		return nil, taxdomain.ErrInvalidTaxRate
	}

	now := time.Now().UTC()
	entity := &taxdomain.TaxRate{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        strings.TrimSpace(req.Name),
		Percentage:  pct,
		Description: req.Description,
		IsEnabled:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context) ([]taxdomain.TaxRate, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.Find(ctx, &taxdomain.TaxRate{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	rates := make([]taxdomain.TaxRate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rates = append(rates, *item)
	}
	return rates, nil
}

func (s *Service) Get(ctx context.Context, id string) (*taxdomain.TaxRate, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rateID, err := parseID(id)
	if err != nil {
		return nil, taxdomain.ErrInvalidID
	}

	entity, err := s.repo.FindOne(ctx, &taxdomain.TaxRate{ID: rateID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, taxdomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) error {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return err
	}

	rateID, err := parseID(id)
	if err != nil {
		return taxdomain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Model(&taxdomain.TaxRate{}).
		Where("id = ? AND org_id = ?", rateID, orgID).
		Updates(map[string]any{"is_enabled": enabled, "updated_at": time.Now().UTC()}).Error
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, taxdomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
