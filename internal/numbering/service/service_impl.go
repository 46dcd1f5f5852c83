package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/config"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/billora/billora/internal/numbering/domain"
	"github.com/billora/billora/internal/orgcontext"
	"github.com/billora/billora/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Counter domain.DocumentCounter
	Billing *config.BillingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    repository.Repository[domain.NumberingSystem]
	counter domain.DocumentCounter
	billing *config.BillingConfigHolder
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("numbering.service"),
		genID:   p.GenID,
		repo:    repository.ProvideStore[domain.NumberingSystem](p.DB),
		counter: p.Counter,
		billing: p.Billing,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.NumberingSystem, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	template := strings.TrimSpace(req.Template)
	if template == "" {
		return nil, domain.ErrInvalidNumberingSystem
	}
	interval := req.ResetInterval
	if interval == "" {
		interval = domain.ResetNever
	}
	if !interval.Valid() {
		return nil, domain.ErrInvalidResetInterval
	}

	existing, err := s.repo.FindOne(ctx, &domain.NumberingSystem{OrgID: orgID, DocumentType: req.DocumentType})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrNumberingSystemExists
	}

	now := time.Now().UTC()
	entity := &domain.NumberingSystem{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		DocumentType:  req.DocumentType,
		Template:      template,
		ResetInterval: interval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.NumberingSystem, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entity, err := s.repo.FindOne(ctx, &domain.NumberingSystem{ID: id, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNumberingSystemNotFound
	}

	if template := strings.TrimSpace(req.Template); template != "" {
		entity.Template = template
	}
	if req.ResetInterval != "" {
		if !req.ResetInterval.Valid() {
			return nil, domain.ErrInvalidResetInterval
		}
		entity.ResetInterval = req.ResetInterval
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, entity.ID, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context) ([]domain.NumberingSystem, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.Find(ctx, &domain.NumberingSystem{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	systems := make([]domain.NumberingSystem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		systems = append(systems, *item)
	}
	return systems, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.NumberingSystem, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entity, err := s.repo.FindOne(ctx, &domain.NumberingSystem{ID: id, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNumberingSystemNotFound
	}
	return entity, nil
}

func (s *Service) NextNumber(ctx context.Context, orgID snowflake.ID, docType lifecycle.DocumentType, effectiveAt time.Time) (string, error) {
	return s.NextNumberInTx(ctx, nil, orgID, docType, effectiveAt)
}

func (s *Service) NextNumberInTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType lifecycle.DocumentType, effectiveAt time.Time) (string, error) {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTrx(tx)
	}
	sys, err := repo.FindOne(ctx, &domain.NumberingSystem{OrgID: orgID, DocumentType: docType})
	if err != nil {
		return "", err
	}
	if sys == nil {
		sys = s.defaultSystem(orgID, docType)
	}

	start, end := CalculateBounds(sys.ResetInterval, effectiveAt)
	count, err := s.counter.CountInWindow(ctx, tx, orgID, docType, start, end)
	if err != nil {
		return "", err
	}

	number := Render(sys.Template, count, effectiveAt)
	s.log.Debug("rendered document number",
		zap.String("org_id", orgID.String()),
		zap.String("document_type", string(docType)),
		zap.Int64("count", count),
		zap.String("number", number),
	)
	return number, nil
}

// defaultSystem synthesizes an unsaved numbering system from the billing
// config for orgs that never configured one.
func (s *Service) defaultSystem(orgID snowflake.ID, docType lifecycle.DocumentType) *domain.NumberingSystem {
	cfg := s.billing.Get().Numbering

	template := cfg.InvoiceTemplate
	switch docType {
	case lifecycle.DocumentCreditNote:
		template = cfg.CreditNoteTemplate
	case lifecycle.DocumentQuote:
		template = cfg.QuoteTemplate
	}

	return &domain.NumberingSystem{
		OrgID:         orgID,
		DocumentType:  docType,
		Template:      template,
		ResetInterval: domain.ResetInterval(cfg.ResetInterval),
	}
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidNumberingSystem
	}
	return orgID, nil
}
