package quote

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/service"
)

var Module = fx.Module("quote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
