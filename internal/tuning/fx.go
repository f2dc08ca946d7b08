package tuning

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/service"
)

var Module = fx.Module("tuning.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
