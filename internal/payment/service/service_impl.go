package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/clock"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/payment/domain"
	"github.com/billora/billora/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	invoiceSvc  invoicedomain.Service
	paymentrepo repository.Repository[domain.Payment]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		clock: p.Clock,

		invoiceSvc:  p.InvoiceSvc,
		paymentrepo: repository.ProvideStore[domain.Payment](p.DB),
	}
}

// HandleResult settles a webhook outcome: it marks the payment record and
// folds the amount into the invoice's totals.
func (s *Service) HandleResult(ctx context.Context, req domain.ResultRequest) error {
	if req.TransactionID == "" {
		return domain.ErrInvalidResult
	}

	payment, err := s.paymentrepo.FindOne(ctx, &domain.Payment{TransactionID: req.TransactionID})
	if err != nil {
		return err
	}
	if payment == nil {
		return domain.ErrPaymentNotFound
	}

	status := domain.PaymentStatusFailed
	if req.Succeeded {
		status = domain.PaymentStatusSucceeded
	}
	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.clock.Now()
	}
	amount := req.Amount
	if amount.IsZero() {
		amount = payment.Amount
	}

	if err := s.paymentrepo.Update(ctx, payment.ID, map[string]any{
		"status":      status,
		"amount":      amount,
		"received_at": receivedAt,
		"updated_at":  s.clock.Now(),
	}); err != nil {
		return err
	}

	_, err = s.invoiceSvc.ApplyPaymentResult(ctx, payment.InvoiceID, req.Succeeded, amount, receivedAt)
	if err != nil {
		return err
	}

	s.log.Info("payment result applied",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", payment.InvoiceID.String()),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]domain.Payment, error) {
	items, err := s.paymentrepo.Find(ctx, &domain.Payment{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments, nil
}
