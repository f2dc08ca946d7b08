package local

import "go.uber.org/fx"

// Module registers the login/logout/me routes alongside the handler;
// they sit outside /v1 so no session middleware guards them.
var Module = fx.Module("auth.local",
	fx.Invoke(RegisterRoutes),
	fx.Provide(NewHandler),
)
