package publicquote

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/service"
)

// Module wires the customer-facing quote surface.
var Module = fx.Module("publicquote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
