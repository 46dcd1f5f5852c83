package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/orgcontext"
	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/pkg/repository"
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
	repo  repository.Repository[productdomain.Product]
}

func NewService(p ServiceParam) productdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[productdomain.Product](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req productdomain.CreateRequest) (*productdomain.Product, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, productdomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, productdomain.ErrInvalidName
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	entity := &productdomain.Product{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Code:        code,
		Name:        name,
		Description: req.Description,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context) ([]productdomain.Product, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.Find(ctx, &productdomain.Product{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	products := make([]productdomain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*productdomain.Product, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, productdomain.ErrInvalidID
	}

	entity, err := s.repo.FindOne(ctx, &productdomain.Product{ID: productID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, productdomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, productdomain.ErrInvalidOrganization
	}
	return orgID, nil
}
