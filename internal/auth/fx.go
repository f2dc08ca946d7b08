package auth

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/service"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
