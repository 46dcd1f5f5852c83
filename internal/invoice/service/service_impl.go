package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	"github.com/billora/billora/internal/observability/metrics"
	"github.com/billora/billora/internal/orgcontext"
	orgrepository "github.com/billora/billora/internal/organization/repository"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/billora/billora/pkg/db"
	"github.com/billora/billora/pkg/db/option"
	"github.com/billora/billora/pkg/money"
	"github.com/billora/billora/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Billing   *config.BillingConfigHolder
	Numbering numberingdomain.Service
	OrgRepo   *orgrepository.Repository
	Metrics   *metrics.Metrics
	Provider  paymentdomain.Provider `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	billing   *config.BillingConfigHolder
	numbering numberingdomain.Service
	orgRepo   *orgrepository.Repository
	metrics   *metrics.Metrics
	provider  paymentdomain.Provider

	invoicerepo repository.Repository[invoicedomain.Invoice]
	headrepo    repository.Repository[invoicedomain.InvoiceHead]
	linerepo    repository.Repository[invoicedomain.InvoiceLine]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		billing:   p.Billing,
		numbering: p.Numbering,
		orgRepo:   p.OrgRepo,
		metrics:   p.Metrics,
		provider:  p.Provider,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		headrepo:    repository.ProvideStore[invoicedomain.InvoiceHead](p.DB),
		linerepo:    repository.ProvideStore[invoicedomain.InvoiceLine](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return nil, invoicedomain.ErrInvalidCustomer
	}
	currency := money.NormalizeCurrency(req.Currency)
	if currency == "" {
		return nil, invoicedomain.ErrInvalidCurrency
	}

	var created *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err = s.createDraft(ctx, tx, orgID, customerID, currency, req.Memo, req.Lines)
		if err != nil {
			return err
		}
		created.DueAt = req.DueAt
		if req.DueAt != nil {
			return tx.WithContext(ctx).Exec(
				`UPDATE invoices SET due_at = ? WHERE id = ?`, req.DueAt, created.ID,
			).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice draft created",
		zap.String("invoice_id", created.ID.String()),
		zap.String("org_id", orgID.String()),
	)
	return created, nil
}

func (s *Service) CreateDraftFromLines(ctx context.Context, customerID snowflake.ID, currency string, lines []invoicedomain.LineRequest) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var created *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err = s.createDraft(ctx, tx, orgID, customerID, currency, "", lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createDraft inserts a head plus its root draft revision and the initial
// lines, then recalculates.
func (s *Service) createDraft(ctx context.Context, tx *gorm.DB, orgID, customerID snowflake.ID, currency, memo string, lines []invoicedomain.LineRequest) (*invoicedomain.Invoice, error) {
	now := s.clock.Now()
	invoiceID := s.genID.Generate()
	headID := s.genID.Generate()

	head := invoicedomain.InvoiceHead{
		ID:        headID,
		OrgID:     orgID,
		RootID:    invoiceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.headrepo.WithTrx(tx).Create(ctx, &head); err != nil {
		return nil, err
	}

	invoice := invoicedomain.Invoice{
		ID:         invoiceID,
		OrgID:      orgID,
		HeadID:     headID,
		CustomerID: customerID,
		Status:     lifecycle.StatusDraft,
		Currency:   currency,
		Memo:       memo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.invoicerepo.WithTrx(tx).Create(ctx, &invoice); err != nil {
		return nil, err
	}

	for i, req := range lines {
		if _, err := s.insertLine(ctx, tx, &invoice, i, req); err != nil {
			return nil, err
		}
	}

	if err := s.recalcAndPersist(ctx, tx, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}

	filter := &invoicedomain.Invoice{OrgID: orgID}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	if req.CustomerID != nil {
		id, err := parseID(*req.CustomerID)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}
	if req.HeadID != nil {
		id, err := parseID(*req.HeadID)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidInvoiceID
		}
		filter.HeadID = id
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	}
	if req.CreatedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    *req.CreatedFrom,
		}))
	}
	if req.CreatedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    *req.CreatedTo,
		}))
	}

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoicedomain.ListResponse{Invoices: invoices}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	invoice, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: invoiceID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	invoice.Lines, err = s.listLines(ctx, s.db, invoice.ID)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) AddLine(ctx context.Context, invoiceID string, req invoicedomain.LineRequest) (*invoicedomain.Invoice, error) {
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&invoicedomain.InvoiceLine{}).
			Where("invoice_id = ?", invoice.ID).
			Count(&count).Error; err != nil {
			return err
		}
		_, err := s.insertLine(ctx, tx, invoice, int(count), req)
		return err
	})
}

func (s *Service) UpdateLine(ctx context.Context, invoiceID, lineID string, req invoicedomain.LineRequest) (*invoicedomain.Invoice, error) {
	id, err := parseID(lineID)
	if err != nil {
		return nil, invoicedomain.ErrLineNotFound
	}
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		line, err := s.linerepo.WithTrx(tx).FindOne(ctx, &invoicedomain.InvoiceLine{ID: id, InvoiceID: invoice.ID})
		if err != nil {
			return err
		}
		if line == nil {
			return invoicedomain.ErrLineNotFound
		}
		if req.Quantity <= 0 {
			return invoicedomain.ErrInvalidQuantity
		}

		priceID, unitAmount, err := s.resolveLineSource(ctx, tx, invoice, req)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Exec(
			`UPDATE invoice_lines
			 SET description = ?, quantity = ?, price_id = ?, unit_amount = ?, updated_at = ?
			 WHERE id = ?`,
			strings.TrimSpace(req.Description),
			req.Quantity,
			priceID,
			unitAmount,
			s.clock.Now(),
			line.ID,
		).Error
	})
}

func (s *Service) RemoveLine(ctx context.Context, invoiceID, lineID string) (*invoicedomain.Invoice, error) {
	id, err := parseID(lineID)
	if err != nil {
		return nil, invoicedomain.ErrLineNotFound
	}
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		result := tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_lines WHERE id = ? AND invoice_id = ?`, id, invoice.ID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrLineNotFound
		}
		// Line-scoped attachments die with the line.
		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_discounts WHERE line_id = ?`, id,
		).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_tax_lines WHERE line_id = ?`, id,
		).Error
	})
}

func (s *Service) AttachDiscount(ctx context.Context, invoiceID string, req invoicedomain.AttachDiscountRequest) (*invoicedomain.Invoice, error) {
	couponID, err := parseID(req.CouponID)
	if err != nil {
		return nil, invoicedomain.ErrCouponNotFound
	}
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		var coupon coupondomain.Coupon
		err := tx.WithContext(ctx).
			Where("id = ? AND org_id = ?", couponID, invoice.OrgID).
			First(&coupon).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invoicedomain.ErrCouponNotFound
			}
			return err
		}
		if coupon.Fixed() && coupon.Currency != invoice.Currency {
			return invoicedomain.ErrInvalidCurrency
		}

		lineID, err := s.resolveLineRef(ctx, tx, invoice, req.LineID)
		if err != nil {
			return err
		}

		position, err := s.nextAttachmentPosition(ctx, tx, "invoice_discounts", invoice.ID, lineID)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&invoicedomain.InvoiceDiscount{
			ID:        s.genID.Generate(),
			OrgID:     invoice.OrgID,
			InvoiceID: invoice.ID,
			LineID:    lineID,
			CouponID:  coupon.ID,
			Position:  position,
			CreatedAt: s.clock.Now(),
		}).Error
	})
}

func (s *Service) DetachDiscount(ctx context.Context, invoiceID, discountID string) (*invoicedomain.Invoice, error) {
	id, err := parseID(discountID)
	if err != nil {
		return nil, invoicedomain.ErrDiscountNotFound
	}
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		result := tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_discounts WHERE id = ? AND invoice_id = ?`, id, invoice.ID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrDiscountNotFound
		}
		return nil
	})
}

func (s *Service) AttachTaxRate(ctx context.Context, invoiceID string, req invoicedomain.AttachTaxRateRequest) (*invoicedomain.Invoice, error) {
	taxRateID, err := parseID(req.TaxRateID)
	if err != nil {
		return nil, invoicedomain.ErrTaxRateNotFound
	}
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		var rate taxdomain.TaxRate
		err := tx.WithContext(ctx).
			Where("id = ? AND org_id = ? AND is_enabled = ?", taxRateID, invoice.OrgID, true).
			First(&rate).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invoicedomain.ErrTaxRateNotFound
			}
			return err
		}

		lineID, err := s.resolveLineRef(ctx, tx, invoice, req.LineID)
		if err != nil {
			return err
		}

		position, err := s.nextAttachmentPosition(ctx, tx, "invoice_tax_lines", invoice.ID, lineID)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&invoicedomain.InvoiceTaxLine{
			ID:        s.genID.Generate(),
			OrgID:     invoice.OrgID,
			InvoiceID: invoice.ID,
			LineID:    lineID,
			TaxRateID: rate.ID,
			Position:  position,
			CreatedAt: s.clock.Now(),
		}).Error
	})
}

func (s *Service) DetachTaxRate(ctx context.Context, invoiceID, taxLineID string) (*invoicedomain.Invoice, error) {
	id, err := parseID(taxLineID)
	if err != nil {
		return nil, invoicedomain.ErrTaxLineNotFound
	}
	return s.mutateDraft(ctx, invoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		result := tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_tax_lines WHERE id = ? AND invoice_id = ?`, id, invoice.ID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrTaxLineNotFound
		}
		return nil
	})
}

// mutateDraft loads the invoice under a row lock, verifies it is editable,
// applies the mutation and recalculates, all in one transaction.
func (s *Service) mutateDraft(ctx context.Context, invoiceID string, mutate func(tx *gorm.DB, invoice *invoicedomain.Invoice) error) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(invoiceID)
	if err != nil {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	started := time.Now()
	defer func() {
		s.metrics.RecalcDuration.Observe(time.Since(started).Seconds())
	}()

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err = s.loadInvoiceForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if err := lifecycle.RequireEditable(invoice.Status); err != nil {
			return err
		}
		if err := mutate(tx, invoice); err != nil {
			return err
		}
		return s.recalcAndPersist(ctx, tx, invoice)
	})
	if err != nil {
		s.metrics.Recalculations.WithLabelValues("invoice", "error").Inc()
		return nil, err
	}
	s.metrics.Recalculations.WithLabelValues("invoice", "ok").Inc()
	return invoice, nil
}

func (s *Service) insertLine(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, position int, req invoicedomain.LineRequest) (*invoicedomain.InvoiceLine, error) {
	if req.Quantity <= 0 {
		return nil, invoicedomain.ErrInvalidQuantity
	}
	priceID, unitAmount, err := s.resolveLineSource(ctx, tx, invoice, req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	line := invoicedomain.InvoiceLine{
		ID:          s.genID.Generate(),
		OrgID:       invoice.OrgID,
		InvoiceID:   invoice.ID,
		PriceID:     priceID,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		Position:    position,
		UnitAmount:  unitAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.linerepo.WithTrx(tx).Create(ctx, &line); err != nil {
		return nil, err
	}
	return &line, nil
}

// resolveLineSource validates the price-or-unit-amount choice and returns
// the stored representation.
func (s *Service) resolveLineSource(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, req invoicedomain.LineRequest) (*snowflake.ID, decimal.Decimal, error) {
	switch {
	case req.PriceID != nil:
		priceID, err := parseID(*req.PriceID)
		if err != nil {
			return nil, decimal.Zero, invoicedomain.ErrPriceNotFound
		}
		price, _, err := s.loadPrice(ctx, tx, invoice.OrgID, priceID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if price.Archived() {
			return nil, decimal.Zero, pricingdomain.ErrPriceArchived
		}
		if price.Currency != invoice.Currency {
			return nil, decimal.Zero, invoicedomain.ErrInvalidCurrency
		}
		return &price.ID, decimal.Zero, nil
	case req.UnitAmount != nil:
		if req.UnitAmount.IsNegative() {
			return nil, decimal.Zero, invoicedomain.ErrInvalidLine
		}
		return nil, *req.UnitAmount, nil
	default:
		return nil, decimal.Zero, invoicedomain.ErrInvalidLine
	}
}

func (s *Service) resolveLineRef(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, ref *string) (*snowflake.ID, error) {
	if ref == nil {
		return nil, nil
	}
	id, err := parseID(*ref)
	if err != nil {
		return nil, invoicedomain.ErrLineNotFound
	}
	line, err := s.linerepo.WithTrx(tx).FindOne(ctx, &invoicedomain.InvoiceLine{ID: id, InvoiceID: invoice.ID})
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, invoicedomain.ErrLineNotFound
	}
	return &line.ID, nil
}

func (s *Service) nextAttachmentPosition(ctx context.Context, tx *gorm.DB, table string, invoiceID snowflake.ID, lineID *snowflake.ID) (int, error) {
	var position int
	query := `SELECT COALESCE(MAX(position), -1) + 1 FROM ` + table + ` WHERE invoice_id = ? AND line_id IS NULL`
	args := []any{invoiceID}
	if lineID != nil {
		query = `SELECT COALESCE(MAX(position), -1) + 1 FROM ` + table + ` WHERE invoice_id = ? AND line_id = ?`
		args = append(args, *lineID)
	}
	if err := tx.WithContext(ctx).Raw(query, args...).Scan(&position).Error; err != nil {
		return 0, err
	}
	return position, nil
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	query := tx.WithContext(ctx)
	if db.SupportsRowLocking(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice invoicedomain.Invoice
	err := query.Where("id = ? AND org_id = ?", id, orgID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, invoicedomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
