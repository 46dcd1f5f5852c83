package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	"github.com/billora/billora/internal/creditnote/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	"github.com/billora/billora/internal/observability/metrics"
	"github.com/billora/billora/internal/orgcontext"
	orgrepository "github.com/billora/billora/internal/organization/repository"
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

	noterepo repository.Repository[domain.CreditNote]
	linerepo repository.Repository[domain.CreditNoteLine]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("creditnote.service"),
		genID: p.GenID,
		clock: p.Clock,

		billing:    p.Billing,
		numbering:  p.Numbering,
		orgRepo:    p.OrgRepo,
		metrics:    p.Metrics,
		invoiceSvc: p.InvoiceSvc,

		noterepo: repository.ProvideStore[domain.CreditNote](p.DB),
		linerepo: repository.ProvideStore[domain.CreditNoteLine](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreditNote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return nil, domain.ErrInvoiceNotCreditable
	}
	if len(req.Lines) == 0 {
		return nil, domain.ErrEmptyCreditNote
	}

	var note *domain.CreditNote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadCreditableInvoice(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		noteID := s.genID.Generate()
		total := money.Zero(invoice.Currency)
		excludingTax := money.Zero(invoice.Currency)
		tax := money.Zero(invoice.Currency)

		lines := make([]domain.CreditNoteLine, 0, len(req.Lines))
		for _, lineReq := range req.Lines {
			invoiceLine, err := s.loadInvoiceLine(ctx, tx, invoice.ID, lineReq.InvoiceLineID)
			if err != nil {
				return err
			}

			derived, err := DeriveLine(*invoiceLine, invoice.Currency, lineReq)
			if err != nil {
				return err
			}

			lines = append(lines, domain.CreditNoteLine{
				ID:            s.genID.Generate(),
				OrgID:         orgID,
				CreditNoteID:  noteID,
				InvoiceLineID: invoiceLine.ID,
				Description:   invoiceLine.Description,
				Quantity:      derived.Quantity,
				Ratio:         derived.Ratio,
				ExcludingTax:  derived.ExcludingTax.Amount,
				Tax:           derived.Tax.Amount,
				Total:         derived.Total.Amount,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			excludingTax = excludingTax.Add(derived.ExcludingTax)
			tax = tax.Add(derived.Tax)
			total = total.Add(derived.Total)
		}

		if total.Amount.GreaterThan(invoice.Outstanding) {
			return domain.ErrExceedsOutstanding
		}

		note = &domain.CreditNote{
			ID:                noteID,
			OrgID:             orgID,
			InvoiceID:         invoice.ID,
			CustomerID:        invoice.CustomerID,
			Status:            lifecycle.StatusDraft,
			Currency:          invoice.Currency,
			Reason:            strings.TrimSpace(req.Reason),
			TotalExcludingTax: excludingTax.Amount,
			TotalTax:          tax.Amount,
			TotalAmount:       total.Amount,
			CreatedAt:         now,
			UpdatedAt:         now,
			Lines:             lines,
		}
		if err := s.noterepo.WithTrx(tx).Create(ctx, note); err != nil {
			return err
		}
		for i := range lines {
			if err := s.linerepo.WithTrx(tx).Create(ctx, &lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("credit note draft created",
		zap.String("credit_note_id", note.ID.String()),
		zap.String("invoice_id", note.InvoiceID.String()),
	)
	return note, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.CreditNote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := &domain.CreditNote{OrgID: orgID}
	if req.InvoiceID != nil {
		id, err := parseID(*req.InvoiceID)
		if err != nil {
			return nil, domain.ErrInvoiceNotCreditable
		}
		filter.InvoiceID = id
	}

	items, err := s.noterepo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	notes := make([]domain.CreditNote, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		notes = append(notes, *item)
	}
	return notes, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.CreditNote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	noteID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidCreditNoteID
	}

	note, err := s.noterepo.FindOne(ctx, &domain.CreditNote{ID: noteID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, domain.ErrCreditNoteNotFound
	}

	note.Lines, err = s.listLines(ctx, s.db, note.ID)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Issue assigns a number, freezes the credit note and consumes the
// referenced invoice lines' outstanding balances. The invoice's totals are
// recalculated in the same transaction.
func (s *Service) Issue(ctx context.Context, id string) (*domain.CreditNote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	noteID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidCreditNoteID
	}

	retries := s.billing.Get().Payment.NumberRetries
	var note *domain.CreditNote
	for attempt := 0; attempt < retries; attempt++ {
		note, err = s.issueOnce(ctx, orgID, noteID)
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			s.metrics.Finalizations.WithLabelValues("credit_note", "error").Inc()
			return nil, err
		}
		s.metrics.NumberConflicts.Inc()
	}
	if err != nil {
		s.metrics.Finalizations.WithLabelValues("credit_note", "error").Inc()
		return nil, domain.ErrNumberExhausted
	}
	s.metrics.Finalizations.WithLabelValues("credit_note", "ok").Inc()
	return note, nil
}

func (s *Service) issueOnce(ctx context.Context, orgID, noteID snowflake.ID) (*domain.CreditNote, error) {
	var note *domain.CreditNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		note, err = s.loadNoteForUpdate(ctx, tx, orgID, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return domain.ErrCreditNoteNotFound
		}
		if err := lifecycle.RequireEditable(note.Status); err != nil {
			return err
		}

		invoice, err := s.loadCreditableInvoice(ctx, tx, orgID, note.InvoiceID)
		if err != nil {
			return err
		}
		if note.TotalAmount.GreaterThan(invoice.Outstanding) {
			return domain.ErrExceedsOutstanding
		}

		note.Lines, err = s.listLines(ctx, tx, note.ID)
		if err != nil {
			return err
		}

		if err := s.orgRepo.Lock(ctx, tx, orgID); err != nil {
			return err
		}

		now := s.clock.Now()
		number, err := s.numbering.NextNumberInTx(ctx, tx, orgID, lifecycle.DocumentCreditNote, now)
		if err != nil {
			return err
		}

		for _, line := range note.Lines {
			outstanding, err := s.invoiceLineOutstanding(ctx, tx, line.InvoiceLineID)
			if err != nil {
				return err
			}
			if line.Total.GreaterThan(outstanding) {
				return domain.ErrExceedsOutstanding
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE invoice_lines
				 SET credited_quantity = credited_quantity + ?,
				     credited_amount = credited_amount + ?,
				     updated_at = ?
				 WHERE id = ?`,
				line.Quantity,
				line.Total,
				now,
				line.InvoiceLineID,
			).Error; err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoices SET total_credited = total_credited + ? WHERE id = ?`,
			note.TotalAmount,
			invoice.ID,
		).Error; err != nil {
			return err
		}
		if err := s.invoiceSvc.RecalculateInTx(ctx, tx, invoice.ID); err != nil {
			return err
		}

		status, err := lifecycle.Transition(lifecycle.DocumentCreditNote, note.Status, lifecycle.StatusIssued)
		if err != nil {
			return err
		}
		note.Number = &number
		note.Status = status
		note.IssuedAt = &now
		note.UpdatedAt = now

		return tx.WithContext(ctx).Exec(
			`UPDATE credit_notes
			 SET number = ?, status = ?, issued_at = ?, updated_at = ?
			 WHERE id = ?`,
			note.Number, note.Status, note.IssuedAt, note.UpdatedAt, note.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("credit note issued",
		zap.String("credit_note_id", note.ID.String()),
		zap.String("number", *note.Number),
	)
	return note, nil
}

func (s *Service) Void(ctx context.Context, id string) (*domain.CreditNote, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	noteID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidCreditNoteID
	}

	var note *domain.CreditNote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err = s.loadNoteForUpdate(ctx, tx, orgID, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return domain.ErrCreditNoteNotFound
		}

		status, err := lifecycle.Transition(lifecycle.DocumentCreditNote, note.Status, lifecycle.StatusVoided)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		note.Status = status
		note.VoidedAt = &now
		note.UpdatedAt = now

		return tx.WithContext(ctx).Exec(
			`UPDATE credit_notes SET status = ?, voided_at = ?, updated_at = ? WHERE id = ?`,
			status, now, now, note.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *Service) loadCreditableInvoice(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	query := tx.WithContext(ctx)
	if db.SupportsRowLocking(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice invoicedomain.Invoice
	err := query.Where("id = ? AND org_id = ?", invoiceID, orgID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvoiceNotCreditable
		}
		return nil, err
	}
	if invoice.Status != lifecycle.StatusOpen && invoice.Status != lifecycle.StatusPaid {
		return nil, domain.ErrInvoiceNotCreditable
	}
	return &invoice, nil
}

func (s *Service) loadInvoiceLine(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, rawLineID string) (*invoicedomain.InvoiceLine, error) {
	lineID, err := parseID(rawLineID)
	if err != nil {
		return nil, domain.ErrInvalidCreditRequest
	}

	var line invoicedomain.InvoiceLine
	err = tx.WithContext(ctx).
		Where("id = ? AND invoice_id = ?", lineID, invoiceID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCreditRequest
		}
		return nil, err
	}
	return &line, nil
}

func (s *Service) invoiceLineOutstanding(ctx context.Context, tx *gorm.DB, lineID snowflake.ID) (decimal.Decimal, error) {
	var line invoicedomain.InvoiceLine
	err := tx.WithContext(ctx).Where("id = ?", lineID).First(&line).Error
	if err != nil {
		return decimal.Zero, err
	}
	outstanding := line.TotalAmount.Sub(line.CreditedAmount)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return outstanding, nil
}

func (s *Service) listLines(ctx context.Context, tx *gorm.DB, noteID snowflake.ID) ([]domain.CreditNoteLine, error) {
	var lines []domain.CreditNoteLine
	err := tx.WithContext(ctx).
		Where("credit_note_id = ?", noteID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) loadNoteForUpdate(ctx context.Context, tx *gorm.DB, orgID, noteID snowflake.ID) (*domain.CreditNote, error) {
	query := tx.WithContext(ctx)
	if db.SupportsRowLocking(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var note domain.CreditNote
	err := query.Where("id = ? AND org_id = ?", noteID, orgID).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
