package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/billing"
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	"github.com/billora/billora/internal/observability/metrics"
	"github.com/billora/billora/internal/orgcontext"
	orgrepository "github.com/billora/billora/internal/organization/repository"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	quotedomain "github.com/billora/billora/internal/quote/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/billora/billora/pkg/db"
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

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Billing    *config.BillingConfigHolder
	Numbering  numberingdomain.Service
	OrgRepo    *orgrepository.Repository
	Metrics    *metrics.Metrics
	InvoiceSvc invoicedomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	billing    *config.BillingConfigHolder
	numbering  numberingdomain.Service
	orgRepo    *orgrepository.Repository
	metrics    *metrics.Metrics
	invoiceSvc invoicedomain.Service

	quoterepo repository.Repository[quotedomain.Quote]
	linerepo  repository.Repository[quotedomain.QuoteLine]
}

func NewService(p ServiceParam) quotedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("quote.service"),
		genID: p.GenID,
		clock: p.Clock,

		billing:    p.Billing,
		numbering:  p.Numbering,
		orgRepo:    p.OrgRepo,
		metrics:    p.Metrics,
		invoiceSvc: p.InvoiceSvc,

		quoterepo: repository.ProvideStore[quotedomain.Quote](p.DB),
		linerepo:  repository.ProvideStore[quotedomain.QuoteLine](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req quotedomain.CreateRequest) (*quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return nil, quotedomain.ErrInvalidCustomer
	}
	currency := money.NormalizeCurrency(req.Currency)
	if currency == "" {
		return nil, quotedomain.ErrInvalidCurrency
	}

	var quote *quotedomain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		quote = &quotedomain.Quote{
			ID:         s.genID.Generate(),
			OrgID:      orgID,
			CustomerID: customerID,
			Status:     lifecycle.StatusDraft,
			Currency:   currency,
			Memo:       strings.TrimSpace(req.Memo),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.quoterepo.WithTrx(tx).Create(ctx, quote); err != nil {
			return err
		}

		for i, lineReq := range req.Lines {
			if err := s.insertLine(ctx, tx, quote, i, lineReq); err != nil {
				return err
			}
		}
		return s.recalcAndPersist(ctx, tx, quote)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote draft created", zap.String("quote_id", quote.ID.String()))
	return quote, nil
}

func (s *Service) List(ctx context.Context, req quotedomain.ListRequest) ([]quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := &quotedomain.Quote{OrgID: orgID}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	if req.CustomerID != nil {
		id, err := parseID(*req.CustomerID)
		if err != nil {
			return nil, quotedomain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}

	items, err := s.quoterepo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	quotes := make([]quotedomain.Quote, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		quotes = append(quotes, *item)
	}
	return quotes, nil
}

func (s *Service) Get(ctx context.Context, id string) (*quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	quoteID, err := parseID(id)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuoteID
	}

	quote, err := s.quoterepo.FindOne(ctx, &quotedomain.Quote{ID: quoteID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}

	quote.Lines, err = s.listLines(ctx, s.db, quote.ID)
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *Service) AddLine(ctx context.Context, quoteID string, req invoicedomain.LineRequest) (*quotedomain.Quote, error) {
	return s.mutateDraft(ctx, quoteID, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&quotedomain.QuoteLine{}).
			Where("quote_id = ?", quote.ID).
			Count(&count).Error; err != nil {
			return err
		}
		return s.insertLine(ctx, tx, quote, int(count), req)
	})
}

func (s *Service) RemoveLine(ctx context.Context, quoteID, lineID string) (*quotedomain.Quote, error) {
	id, err := parseID(lineID)
	if err != nil {
		return nil, quotedomain.ErrQuoteLineNotFound
	}
	return s.mutateDraft(ctx, quoteID, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		result := tx.WithContext(ctx).Exec(
			`DELETE FROM quote_lines WHERE id = ? AND quote_id = ?`, id, quote.ID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return quotedomain.ErrQuoteLineNotFound
		}
		return nil
	})
}

func (s *Service) AttachDiscount(ctx context.Context, quoteID, couponID string) (*quotedomain.Quote, error) {
	id, err := parseID(couponID)
	if err != nil {
		return nil, quotedomain.ErrCouponNotFound
	}
	return s.mutateDraft(ctx, quoteID, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		var coupon coupondomain.Coupon
		err := tx.WithContext(ctx).
			Where("id = ? AND org_id = ?", id, quote.OrgID).
			First(&coupon).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return quotedomain.ErrCouponNotFound
			}
			return err
		}
		if coupon.Fixed() && coupon.Currency != quote.Currency {
			return quotedomain.ErrInvalidCurrency
		}

		var position int
		if err := tx.WithContext(ctx).Raw(
			`SELECT COALESCE(MAX(position), -1) + 1 FROM quote_discounts WHERE quote_id = ?`,
			quote.ID,
		).Scan(&position).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&quotedomain.QuoteDiscount{
			ID:        s.genID.Generate(),
			OrgID:     quote.OrgID,
			QuoteID:   quote.ID,
			CouponID:  coupon.ID,
			Position:  position,
			CreatedAt: s.clock.Now(),
		}).Error
	})
}

func (s *Service) AttachTaxRate(ctx context.Context, quoteID, taxRateID string) (*quotedomain.Quote, error) {
	id, err := parseID(taxRateID)
	if err != nil {
		return nil, quotedomain.ErrTaxRateNotFound
	}
	return s.mutateDraft(ctx, quoteID, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		var rate taxdomain.TaxRate
		err := tx.WithContext(ctx).
			Where("id = ? AND org_id = ? AND is_enabled = ?", id, quote.OrgID, true).
			First(&rate).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return quotedomain.ErrTaxRateNotFound
			}
			return err
		}

		var position int
		if err := tx.WithContext(ctx).Raw(
			`SELECT COALESCE(MAX(position), -1) + 1 FROM quote_tax_lines WHERE quote_id = ?`,
			quote.ID,
		).Scan(&position).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&quotedomain.QuoteTaxLine{
			ID:        s.genID.Generate(),
			OrgID:     quote.OrgID,
			QuoteID:   quote.ID,
			TaxRateID: rate.ID,
			Position:  position,
			CreatedAt: s.clock.Now(),
		}).Error
	})
}

// Open finalizes the draft: it assigns a quote number and freezes the
// content. Retries on number conflicts like invoice finalize.
func (s *Service) Open(ctx context.Context, id string) (*quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	quoteID, err := parseID(id)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuoteID
	}

	retries := s.billing.Get().Payment.NumberRetries
	var quote *quotedomain.Quote
	for attempt := 0; attempt < retries; attempt++ {
		quote, err = s.openOnce(ctx, orgID, quoteID)
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			s.metrics.Finalizations.WithLabelValues("quote", "error").Inc()
			return nil, err
		}
		s.metrics.NumberConflicts.Inc()
	}
	if err != nil {
		s.metrics.Finalizations.WithLabelValues("quote", "error").Inc()
		return nil, quotedomain.ErrNumberExhausted
	}
	s.metrics.Finalizations.WithLabelValues("quote", "ok").Inc()
	return quote, nil
}

func (s *Service) openOnce(ctx context.Context, orgID, quoteID snowflake.ID) (*quotedomain.Quote, error) {
	var quote *quotedomain.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quote, err = s.loadQuoteForUpdate(ctx, tx, orgID, quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrQuoteNotFound
		}
		if err := lifecycle.RequireEditable(quote.Status); err != nil {
			return err
		}

		lines, err := s.listLines(ctx, tx, quote.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return quotedomain.ErrEmptyQuote
		}

		if err := s.orgRepo.Lock(ctx, tx, orgID); err != nil {
			return err
		}

		now := s.clock.Now()
		number, err := s.numbering.NextNumberInTx(ctx, tx, orgID, lifecycle.DocumentQuote, now)
		if err != nil {
			return err
		}

		if err := s.recalcAndPersist(ctx, tx, quote); err != nil {
			return err
		}

		status, err := lifecycle.Transition(lifecycle.DocumentQuote, quote.Status, lifecycle.StatusOpen)
		if err != nil {
			return err
		}
		quote.Number = &number
		quote.Status = status
		quote.OpenedAt = &now
		quote.UpdatedAt = now

		return tx.WithContext(ctx).Exec(
			`UPDATE quotes SET number = ?, status = ?, opened_at = ?, updated_at = ? WHERE id = ?`,
			quote.Number, quote.Status, quote.OpenedAt, quote.UpdatedAt, quote.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *Service) Accept(ctx context.Context, id string) (*quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	quoteID, err := parseID(id)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuoteID
	}

	var quote *quotedomain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err = s.loadQuoteForUpdate(ctx, tx, orgID, quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrQuoteNotFound
		}

		status, err := lifecycle.Transition(lifecycle.DocumentQuote, quote.Status, lifecycle.StatusAccepted)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		quote.Status = status
		quote.AcceptedAt = &now
		quote.UpdatedAt = now

		return tx.WithContext(ctx).Exec(
			`UPDATE quotes SET status = ?, accepted_at = ?, updated_at = ? WHERE id = ?`,
			status, now, now, quote.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	// The conversion runs after the quote committed: a failure here leaves
	// an accepted quote without an invoice, which the caller can retry by
	// creating the invoice directly.
	lines, err := s.listLines(ctx, s.db, quote.ID)
	if err != nil {
		return nil, err
	}
	reqs := make([]invoicedomain.LineRequest, 0, len(lines))
	for _, line := range lines {
		req := invoicedomain.LineRequest{
			Description: line.Description,
			Quantity:    line.Quantity,
		}
		if line.PriceID != nil {
			priceID := line.PriceID.String()
			req.PriceID = &priceID
		} else {
			unit := line.UnitAmount
			req.UnitAmount = &unit
		}
		reqs = append(reqs, req)
	}

	invoice, err := s.invoiceSvc.CreateDraftFromLines(ctx, quote.CustomerID, quote.Currency, reqs)
	if err != nil {
		return nil, err
	}

	quote.InvoiceID = &invoice.ID
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE quotes SET invoice_id = ? WHERE id = ?`, invoice.ID, quote.ID,
	).Error; err != nil {
		return nil, err
	}

	s.log.Info("quote accepted",
		zap.String("quote_id", quote.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
	)
	return quote, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	quoteID, err := parseID(id)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuoteID
	}

	var quote *quotedomain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err = s.loadQuoteForUpdate(ctx, tx, orgID, quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrQuoteNotFound
		}

		status, err := lifecycle.Transition(lifecycle.DocumentQuote, quote.Status, lifecycle.StatusCanceled)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		quote.Status = status
		quote.CanceledAt = &now
		quote.UpdatedAt = now

		return tx.WithContext(ctx).Exec(
			`UPDATE quotes SET status = ?, canceled_at = ?, updated_at = ? WHERE id = ?`,
			status, now, now, quote.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *Service) mutateDraft(ctx context.Context, quoteID string, mutate func(tx *gorm.DB, quote *quotedomain.Quote) error) (*quotedomain.Quote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(quoteID)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuoteID
	}

	var quote *quotedomain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err = s.loadQuoteForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrQuoteNotFound
		}
		if err := lifecycle.RequireEditable(quote.Status); err != nil {
			return err
		}
		if err := mutate(tx, quote); err != nil {
			return err
		}
		return s.recalcAndPersist(ctx, tx, quote)
	})
	if err != nil {
		s.metrics.Recalculations.WithLabelValues("quote", "error").Inc()
		return nil, err
	}
	s.metrics.Recalculations.WithLabelValues("quote", "ok").Inc()
	return quote, nil
}

func (s *Service) insertLine(ctx context.Context, tx *gorm.DB, quote *quotedomain.Quote, position int, req invoicedomain.LineRequest) error {
	if req.Quantity <= 0 {
		return invoicedomain.ErrInvalidQuantity
	}

	var priceID *snowflake.ID
	unitAmount := decimal.Zero
	switch {
	case req.PriceID != nil:
		id, err := parseID(*req.PriceID)
		if err != nil {
			return invoicedomain.ErrPriceNotFound
		}
		price, _, err := s.loadPrice(ctx, tx, quote.OrgID, id)
		if err != nil {
			return err
		}
		if price.Archived() {
			return pricingdomain.ErrPriceArchived
		}
		if price.Currency != quote.Currency {
			return quotedomain.ErrInvalidCurrency
		}
		priceID = &price.ID
	case req.UnitAmount != nil:
		if req.UnitAmount.IsNegative() {
			return invoicedomain.ErrInvalidLine
		}
		unitAmount = *req.UnitAmount
	default:
		return invoicedomain.ErrInvalidLine
	}

	now := s.clock.Now()
	line := quotedomain.QuoteLine{
		ID:          s.genID.Generate(),
		OrgID:       quote.OrgID,
		QuoteID:     quote.ID,
		PriceID:     priceID,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		Position:    position,
		UnitAmount:  unitAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.linerepo.WithTrx(tx).Create(ctx, &line)
}

// recalcAndPersist rebuilds quote totals from its lines and document-level
// attachments.
func (s *Service) recalcAndPersist(ctx context.Context, tx *gorm.DB, quote *quotedomain.Quote) error {
	lines, err := s.listLines(ctx, tx, quote.ID)
	if err != nil {
		return err
	}

	input := billing.DocumentInput{Currency: quote.Currency}
	for _, line := range lines {
		li := billing.LineInput{
			ID:       line.ID,
			Quantity: line.Quantity,
		}
		if line.PriceID != nil {
			price, tiers, err := s.loadPrice(ctx, tx, quote.OrgID, *line.PriceID)
			if err != nil {
				return err
			}
			li.Price = price
			li.Tiers = tiers
		} else {
			unit := money.New(line.UnitAmount, quote.Currency)
			li.UnitAmount = &unit
		}
		input.Lines = append(input.Lines, li)
	}

	type discountRow struct {
		ID         snowflake.ID
		Name       string
		Amount     *decimal.Decimal
		Percentage *decimal.Decimal
		Currency   string
	}
	var discounts []discountRow
	if err := tx.WithContext(ctx).Raw(
		`SELECT d.id, c.name, c.amount, c.percentage, c.currency
		 FROM quote_discounts d
		 JOIN coupons c ON c.id = d.coupon_id
		 WHERE d.quote_id = ?
		 ORDER BY d.position ASC`,
		quote.ID,
	).Scan(&discounts).Error; err != nil {
		return err
	}
	for _, row := range discounts {
		spec := billing.CouponSpec{ID: row.ID, Name: row.Name, Percentage: row.Percentage}
		if row.Amount != nil {
			fixed := money.New(*row.Amount, row.Currency)
			spec.Amount = &fixed
		}
		input.Discounts = append(input.Discounts, spec)
	}

	type taxRateRow struct {
		ID         snowflake.ID
		Name       string
		Percentage decimal.Decimal
	}
	var taxes []taxRateRow
	if err := tx.WithContext(ctx).Raw(
		`SELECT l.id, t.name, t.percentage
		 FROM quote_tax_lines l
		 JOIN tax_rates t ON t.id = l.tax_rate_id
		 WHERE l.quote_id = ?
		 ORDER BY l.position ASC`,
		quote.ID,
	).Scan(&taxes).Error; err != nil {
		return err
	}
	for _, row := range taxes {
		input.TaxRates = append(input.TaxRates, billing.TaxRateSpec{
			ID:         row.ID,
			Name:       row.Name,
			Percentage: row.Percentage,
		})
	}

	totals, err := billing.Recalculate(input)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for i := range lines {
		lt := totals.Lines[i]
		if err := tx.WithContext(ctx).Exec(
			`UPDATE quote_lines
			 SET unit_amount = ?, amount = ?, total_discount = ?, total_excluding_tax = ?,
			     total_tax = ?, total_amount = ?, updated_at = ?
			 WHERE id = ?`,
			lt.UnitAmount.Amount,
			lt.Amount.Amount,
			lt.TotalDiscount.Amount,
			lt.ExcludingTax.Amount,
			lt.TotalTax.Amount,
			lt.TotalAmount.Amount,
			now,
			lines[i].ID,
		).Error; err != nil {
			return err
		}
	}
	for _, entry := range totals.Discounts {
		if err := tx.WithContext(ctx).Exec(
			`UPDATE quote_discounts SET amount = ? WHERE id = ?`,
			entry.Amount.Amount, entry.ID,
		).Error; err != nil {
			return err
		}
	}
	for _, entry := range totals.Taxes {
		if err := tx.WithContext(ctx).Exec(
			`UPDATE quote_tax_lines SET amount = ? WHERE id = ?`,
			entry.Amount.Amount, entry.ID,
		).Error; err != nil {
			return err
		}
	}

	quote.Subtotal = totals.Subtotal.Amount
	quote.TotalDiscount = totals.TotalDiscount.Amount
	quote.TotalExcludingTax = totals.ExcludingTax.Amount
	quote.TotalTax = totals.TotalTax.Amount
	quote.TotalAmount = totals.TotalAmount.Amount
	quote.UpdatedAt = now

	if err := tx.WithContext(ctx).Exec(
		`UPDATE quotes
		 SET subtotal = ?, total_discount = ?, total_excluding_tax = ?, total_tax = ?,
		     total_amount = ?, updated_at = ?
		 WHERE id = ?`,
		quote.Subtotal,
		quote.TotalDiscount,
		quote.TotalExcludingTax,
		quote.TotalTax,
		quote.TotalAmount,
		quote.UpdatedAt,
		quote.ID,
	).Error; err != nil {
		return err
	}

	quote.Lines, err = s.listLines(ctx, tx, quote.ID)
	return err
}

func (s *Service) listLines(ctx context.Context, tx *gorm.DB, quoteID snowflake.ID) ([]quotedomain.QuoteLine, error) {
	var lines []quotedomain.QuoteLine
	err := tx.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("position ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) loadPrice(ctx context.Context, tx *gorm.DB, orgID, priceID snowflake.ID) (*pricingdomain.Price, []pricingdomain.PriceTier, error) {
	var price pricingdomain.Price
	err := tx.WithContext(ctx).
		Where("id = ? AND org_id = ?", priceID, orgID).
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, invoicedomain.ErrPriceNotFound
		}
		return nil, nil, err
	}

	var tiers []pricingdomain.PriceTier
	err = tx.WithContext(ctx).
		Where("price_id = ?", price.ID).
		Order("from_quantity ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, nil, err
	}
	return &price, tiers, nil
}

func (s *Service) loadQuoteForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*quotedomain.Quote, error) {
	query := tx.WithContext(ctx)
	if db.SupportsRowLocking(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var quote quotedomain.Quote
	err := query.Where("id = ? AND org_id = ?", id, orgID).First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, quotedomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
