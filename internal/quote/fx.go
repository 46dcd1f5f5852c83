package quote

import (
	"github.com/billora/billora/internal/quote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quote.service",
	fx.Provide(service.NewService),
)
