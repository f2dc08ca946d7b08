package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/company/repository"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Company{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateCompany(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, domain.CreateCompanyRequest{
		Name:         "Svensson Bygg AB",
		SupportEmail: "info@svenssonbygg.se",
	})
	require.NoError(t, err)
	assert.Equal(t, "svensson-bygg-ab", company.Slug)
	assert.Equal(t, "SE", company.CountryCode)
	assert.Equal(t, "Europe/Stockholm", company.TimezoneName)
	assert.NotZero(t, company.ID)
}

func TestCreateCompanyRejectsEmptyName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateCompanyRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCreateCompanyDisambiguatesSlugCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateCompanyRequest{Name: "Berg & Dal Bygg"})
	require.NoError(t, err)

	second, err := svc.Create(ctx, domain.CreateCompanyRequest{Name: "Berg & Dal Bygg"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, first.Slug)
}

func TestGetCompanyByID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCompanyRequest{Name: "Norrtälje Kök"})
	require.NoError(t, err)

	found, err := svc.GetByID(ctx, domain.GetCompanyRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Norrtälje Kök", found.Name)

	_, err = svc.GetByID(ctx, domain.GetCompanyRequest{ID: "not-a-snowflake"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestGetCompanyBySlug(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCompanyRequest{Name: "Målarfirman Palett"})
	require.NoError(t, err)

	found, err := svc.GetBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetBySlug(ctx, "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
