// Package provider holds payment provider adapters. The noop provider is
// the default wiring for deployments without a payment integration: it
// accepts every checkout and never delivers a result.
package provider

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/config"
	"github.com/billora/billora/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type NoopParam struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
}

type noop struct {
	log   *zap.Logger
	genID *snowflake.Node
}

func NewNoop(p NoopParam) domain.Provider {
	return &noop{
		log:   p.Log.Named("payment.provider.noop"),
		genID: p.GenID,
	}
}

func (n *noop) Name() string { return "noop" }

func (n *noop) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	txID := fmt.Sprintf("noop-%s", n.genID.Generate())
	n.log.Debug("noop checkout",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.String("transaction_id", txID),
	)
	return domain.CheckoutResult{TransactionID: txID}, nil
}

// Select returns the provider configured for the deployment. Unknown names
// fall back to noop so finalize keeps working.
func Select(cfg config.Config, p NoopParam) domain.Provider {
	switch cfg.PaymentProvider {
	case "", "noop":
		return NewNoop(p)
	default:
		p.Log.Warn("unknown payment provider, using noop",
			zap.String("provider", cfg.PaymentProvider),
		)
		return NewNoop(p)
	}
}
