// Package authorization enforces role-based access for staff routes.
// Roles are granted per company domain; policies are global per role.
package authorization

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

var (
	ErrInvalidActor   = errors.New("invalid actor")
	ErrInvalidCompany = errors.New("invalid company")
	ErrInvalidObject  = errors.New("invalid object")
	ErrInvalidAction  = errors.New("invalid action")
	ErrForbidden      = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, actor string, companyID string, object string, action string) error
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
