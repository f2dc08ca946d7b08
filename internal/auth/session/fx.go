package session

import "go.uber.org/fx"

// Module provides the cookie/session manager that SessionRequired and
// the login handler share.
var Module = fx.Module("auth.session",
	fx.Provide(NewManager),
)
