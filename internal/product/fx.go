package product

import (
	"github.com/billora/billora/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(service.NewService),
)
