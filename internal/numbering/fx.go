package numbering

import (
	"github.com/billora/billora/internal/numbering/repository"
	"github.com/billora/billora/internal/numbering/service"
	"go.uber.org/fx"
)

var Module = fx.Module("numbering.service",
	fx.Provide(
		repository.NewDocumentCounter,
		service.NewService,
	),
)
