package payment

import (
	"github.com/billora/billora/internal/payment/provider"
	"github.com/billora/billora/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(
		provider.Select,
		service.NewService,
	),
)
