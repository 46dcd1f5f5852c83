package creditnote

import (
	"github.com/billora/billora/internal/creditnote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditnote.service",
	fx.Provide(service.NewService),
)
