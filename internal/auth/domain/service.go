package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	ChangePassword(ctx context.Context, userID string, newPassword string) error
	// CurrentUser resolves the authenticated user from the request
	// context populated by the session middleware.
	CurrentUser(ctx context.Context) (*User, error)
	ListUsers(ctx context.Context, companyID snowflake.ID) ([]User, error)
}

type CreateUserRequest struct {
	CompanyID   snowflake.ID
	Email       string
	Password    string
	DisplayName string
	Role        string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	Session   *SessionView
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
