package requirements

import (
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/service"
)

// Module wires project requirements intake.
var Module = fx.Module("requirements.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
