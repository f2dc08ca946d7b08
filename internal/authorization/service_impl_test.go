package authorization

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/domain"
)

func newTestAuthorization(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&authdomain.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	enforcer, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("failed to build enforcer: %v", err)
	}

	svc := NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, id int64, companyID int64, role string) {
	t.Helper()
	user := authdomain.User{
		ID:         snowflake.ID(id),
		ExternalID: fmt.Sprintf("ext-%d", id),
		Provider:   authdomain.ProviderLocal,
		CompanyID:  snowflake.ID(companyID),
		Email:      fmt.Sprintf("user%d@svenssonbygg.se", id),
		Role:       role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func TestAdminManagesCatalog(t *testing.T) {
	svc, db := newTestAuthorization(t)
	seedUser(t, db, 101, 11, authdomain.RoleAdmin)

	err := svc.Authorize(context.Background(), "user:101", "11", ObjectPriceProfile, ActionCreate)
	if err != nil {
		t.Fatalf("expected admin to create price profiles, got %v", err)
	}
	err = svc.Authorize(context.Background(), "user:101", "11", ObjectGenerationRule, ActionUpdate)
	if err != nil {
		t.Fatalf("expected admin to update generation rules, got %v", err)
	}
}

func TestSalesCannotWriteCatalog(t *testing.T) {
	svc, db := newTestAuthorization(t)
	seedUser(t, db, 102, 12, authdomain.RoleSales)

	err := svc.Authorize(context.Background(), "user:102", "12", ObjectQuote, ActionCreate)
	if err != nil {
		t.Fatalf("expected sales to create quotes, got %v", err)
	}
	err = svc.Authorize(context.Background(), "user:102", "12", ObjectQuote, ActionQuoteSend)
	if err != nil {
		t.Fatalf("expected sales to send quotes, got %v", err)
	}

	err = svc.Authorize(context.Background(), "user:102", "12", ObjectMaterial, ActionUpdate)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for catalog write, got %v", err)
	}
	err = svc.Authorize(context.Background(), "user:102", "12", ObjectGenerationRule, ActionCreate)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for rule write, got %v", err)
	}
}

func TestUserOutsideCompanyDenied(t *testing.T) {
	svc, db := newTestAuthorization(t)
	seedUser(t, db, 103, 13, authdomain.RoleAdmin)

	err := svc.Authorize(context.Background(), "user:103", "14", ObjectQuote, ActionView)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden outside own company, got %v", err)
	}
}

func TestSystemActorAllowed(t *testing.T) {
	svc, _ := newTestAuthorization(t)

	err := svc.Authorize(context.Background(), "system", "15", ObjectGenerationRule, ActionCreate)
	if err != nil {
		t.Fatalf("expected system actor allowed, got %v", err)
	}
}

func TestInvalidActorRejected(t *testing.T) {
	svc, _ := newTestAuthorization(t)

	err := svc.Authorize(context.Background(), "robot:1", "16", ObjectQuote, ActionView)
	if !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected ErrInvalidActor, got %v", err)
	}
	err = svc.Authorize(context.Background(), "", "16", ObjectQuote, ActionView)
	if !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected ErrInvalidActor for empty actor, got %v", err)
	}
}
