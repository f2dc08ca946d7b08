package pricing

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/service"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
