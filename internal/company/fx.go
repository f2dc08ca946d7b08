package company

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/company/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/company/service"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
