package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/billora/billora/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Finalize moves a draft to open (or straight to paid when nothing is
// outstanding), assigns its document number and voids the head's
// previously-open revision. The number assignment races with concurrent
// finalizations on the same account, so the whole transaction retries on a
// duplicate number.
func (s *Service) Finalize(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	retries := s.billing.Get().Payment.NumberRetries
	var invoice *invoicedomain.Invoice
	for attempt := 0; attempt < retries; attempt++ {
		invoice, err = s.finalizeOnce(ctx, orgID, invoiceID)
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			s.metrics.Finalizations.WithLabelValues("invoice", "error").Inc()
			return nil, err
		}
		s.metrics.NumberConflicts.Inc()
		s.log.Warn("invoice number conflict, retrying",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		s.metrics.Finalizations.WithLabelValues("invoice", "error").Inc()
		return nil, invoicedomain.ErrNumberExhausted
	}
	s.metrics.Finalizations.WithLabelValues("invoice", "ok").Inc()

	if invoice.Status == lifecycle.StatusOpen {
		s.checkout(ctx, invoice)
	}
	return invoice, nil
}

func (s *Service) finalizeOnce(ctx context.Context, orgID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.loadInvoiceForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if err := lifecycle.RequireEditable(invoice.Status); err != nil {
			return err
		}

		lines, err := s.listLines(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return invoicedomain.ErrEmptyInvoice
		}

		// Serializes number assignment across concurrent finalizations.
		if err := s.orgRepo.Lock(ctx, tx, orgID); err != nil {
			return err
		}

		now := s.clock.Now()
		number, err := s.numbering.NextNumberInTx(ctx, tx, orgID, lifecycle.DocumentInvoice, now)
		if err != nil {
			return err
		}

		if err := s.recalcAndPersist(ctx, tx, invoice); err != nil {
			return err
		}

		target := lifecycle.StatusOpen
		if invoice.Outstanding.IsZero() {
			target = lifecycle.StatusPaid
		}
		status, err := lifecycle.Transition(lifecycle.DocumentInvoice, invoice.Status, target)
		if err != nil {
			return err
		}

		if err := s.voidOpenSibling(ctx, tx, invoice.HeadID, invoice.ID, now); err != nil {
			return err
		}

		invoice.Number = &number
		invoice.Status = status
		invoice.FinalizedAt = &now
		if status == lifecycle.StatusPaid {
			invoice.PaidAt = &now
		}
		invoice.UpdatedAt = now

		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET number = ?, status = ?, finalized_at = ?, paid_at = ?, updated_at = ?
			 WHERE id = ?`,
			invoice.Number,
			invoice.Status,
			invoice.FinalizedAt,
			invoice.PaidAt,
			invoice.UpdatedAt,
			invoice.ID,
		).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE invoice_heads SET current_id = ?, updated_at = ? WHERE id = ?`,
			invoice.ID, now, invoice.HeadID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// voidOpenSibling voids the head's previously-open revision so at most one
// revision per head is ever open.
func (s *Service) voidOpenSibling(ctx context.Context, tx *gorm.DB, headID, exceptID snowflake.ID, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, voided_at = ?, updated_at = ?
		 WHERE head_id = ? AND id <> ? AND status = ?`,
		lifecycle.StatusVoided,
		now,
		now,
		headID,
		exceptID,
		lifecycle.StatusOpen,
	).Error
}

// checkout opens a payment session after finalize committed. A provider
// failure leaves a failed payment record behind but never unwinds the
// finalized invoice.
func (s *Service) checkout(ctx context.Context, invoice *invoicedomain.Invoice) {
	if s.provider == nil || !s.billing.Get().Payment.CheckoutEnabled {
		return
	}

	number := ""
	if invoice.Number != nil {
		number = *invoice.Number
	}
	result, err := s.provider.Checkout(ctx, paymentdomain.CheckoutRequest{
		InvoiceID: invoice.ID,
		Number:    number,
		Amount:    invoice.Outstanding,
		Currency:  invoice.Currency,
	})

	now := s.clock.Now()
	payment := paymentdomain.Payment{
		ID:        s.genID.Generate(),
		OrgID:     invoice.OrgID,
		InvoiceID: invoice.ID,
		Provider:  s.provider.Name(),
		Status:    paymentdomain.PaymentStatusPending,
		Amount:    invoice.Outstanding,
		Currency:  invoice.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err != nil {
		payment.Status = paymentdomain.PaymentStatusFailed
		payment.FailureReason = err.Error()
		s.log.Warn("payment checkout failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	} else {
		payment.TransactionID = result.TransactionID
		payment.RedirectURL = result.RedirectURL
	}

	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		s.log.Error("failed to record payment attempt",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) Void(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err = s.loadInvoiceForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		status, err := lifecycle.Transition(lifecycle.DocumentInvoice, invoice.Status, lifecycle.StatusVoided)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		invoice.Status = status
		invoice.VoidedAt = &now
		invoice.UpdatedAt = now

		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoices SET status = ?, voided_at = ?, updated_at = ? WHERE id = ?`,
			status, now, now, invoice.ID,
		).Error; err != nil {
			return err
		}

		// Voiding the head's current revision leaves the head without an
		// effective revision.
		return tx.WithContext(ctx).Exec(
			`UPDATE invoice_heads SET current_id = NULL, updated_at = ?
			 WHERE id = ? AND current_id = ?`,
			now, invoice.HeadID, invoice.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice voided", zap.String("invoice_id", invoice.ID.String()))
	return invoice, nil
}

// Revise creates a new draft revision under the same head, copying the
// source revision's lines and attachments. The source stays untouched
// until the new revision is finalized, which is when it gets voided.
func (s *Service) Revise(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sourceID, err := parseID(id)
	if err != nil {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	var revision *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := s.loadInvoiceForUpdate(ctx, tx, orgID, sourceID)
		if err != nil {
			return err
		}
		if source == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if source.Status != lifecycle.StatusOpen && source.Status != lifecycle.StatusPaid {
			return lifecycle.ErrInvalidTransition
		}

		now := s.clock.Now()
		newID := s.genID.Generate()
		draft := invoicedomain.Invoice{
			ID:                 newID,
			OrgID:              source.OrgID,
			HeadID:             source.HeadID,
			CustomerID:         source.CustomerID,
			PreviousRevisionID: &source.ID,
			Status:             lifecycle.StatusDraft,
			Currency:           source.Currency,
			Memo:               source.Memo,
			DueAt:              source.DueAt,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.invoicerepo.WithTrx(tx).Create(ctx, &draft); err != nil {
			return err
		}

		if err := s.copyLines(ctx, tx, source.ID, &draft, now); err != nil {
			return err
		}

		revision = &draft
		return s.recalcAndPersist(ctx, tx, revision)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice revision created",
		zap.String("source_id", sourceID.String()),
		zap.String("revision_id", revision.ID.String()),
	)
	return revision, nil
}

// copyLines duplicates lines and their attachments onto the new revision.
// Credited trackers reset: credit notes reference the revision they were
// derived from, not the copy.
func (s *Service) copyLines(ctx context.Context, tx *gorm.DB, sourceID snowflake.ID, draft *invoicedomain.Invoice, now time.Time) error {
	lines, err := s.listLines(ctx, tx, sourceID)
	if err != nil {
		return err
	}

	lineIDMap := make(map[snowflake.ID]snowflake.ID, len(lines))
	for _, line := range lines {
		copied := line
		copied.ID = s.genID.Generate()
		copied.InvoiceID = draft.ID
		copied.CreditedQuantity = 0
		copied.CreditedAmount = decimal.Zero
		copied.OutstandingQuantity = line.Quantity
		copied.OutstandingAmount = decimal.Zero
		copied.CreatedAt = now
		copied.UpdatedAt = now
		if err := s.linerepo.WithTrx(tx).Create(ctx, &copied); err != nil {
			return err
		}
		lineIDMap[line.ID] = copied.ID
	}

	var discounts []invoicedomain.InvoiceDiscount
	if err := tx.WithContext(ctx).Where("invoice_id = ?", sourceID).Find(&discounts).Error; err != nil {
		return err
	}
	for _, d := range discounts {
		copied := d
		copied.ID = s.genID.Generate()
		copied.InvoiceID = draft.ID
		copied.Amount = decimal.Zero
		copied.CreatedAt = now
		if d.LineID != nil {
			mapped := lineIDMap[*d.LineID]
			copied.LineID = &mapped
		}
		if err := tx.WithContext(ctx).Create(&copied).Error; err != nil {
			return err
		}
	}

	var taxLines []invoicedomain.InvoiceTaxLine
	if err := tx.WithContext(ctx).Where("invoice_id = ?", sourceID).Find(&taxLines).Error; err != nil {
		return err
	}
	for _, t := range taxLines {
		copied := t
		copied.ID = s.genID.Generate()
		copied.InvoiceID = draft.ID
		copied.Amount = decimal.Zero
		copied.CreatedAt = now
		if t.LineID != nil {
			mapped := lineIDMap[*t.LineID]
			copied.LineID = &mapped
		}
		if err := tx.WithContext(ctx).Create(&copied).Error; err != nil {
			return err
		}
	}
	return nil
}

// ApplyPaymentResult folds a webhook outcome into the invoice. Successful
// amounts raise total_paid and can close the invoice; failures only leave
// their payment record behind.
func (s *Service) ApplyPaymentResult(ctx context.Context, invoiceID snowflake.ID, succeeded bool, amount decimal.Decimal, receivedAt time.Time) (*invoicedomain.Invoice, error) {
	var invoice *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice = &invoicedomain.Invoice{}
		query := tx.WithContext(ctx)
		if db.SupportsRowLocking(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.Where("id = ?", invoiceID).First(invoice).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return invoicedomain.ErrInvoiceNotFound
			}
			return err
		}

		if !succeeded {
			s.metrics.PaymentResults.WithLabelValues("failed").Inc()
			return nil
		}

		invoice.TotalPaid = invoice.TotalPaid.Add(amount)
		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoices SET total_paid = ? WHERE id = ?`,
			invoice.TotalPaid, invoice.ID,
		).Error; err != nil {
			return err
		}

		if err := s.recalcAndPersist(ctx, tx, invoice); err != nil {
			return err
		}

		if invoice.Status == lifecycle.StatusOpen && invoice.Outstanding.IsZero() {
			status, err := lifecycle.Transition(lifecycle.DocumentInvoice, invoice.Status, lifecycle.StatusPaid)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			invoice.Status = status
			invoice.PaidAt = &receivedAt
			invoice.UpdatedAt = now
			if err := tx.WithContext(ctx).Exec(
				`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ? WHERE id = ?`,
				status, receivedAt, now, invoice.ID,
			).Error; err != nil {
				return err
			}
		}

		s.metrics.PaymentResults.WithLabelValues("succeeded").Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
