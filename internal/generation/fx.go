package generation

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/service"
)

var Module = fx.Module("generation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
