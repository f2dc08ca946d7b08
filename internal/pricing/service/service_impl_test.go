package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/repository"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PriceProfile{}, &domain.LaborRate{}, &domain.Material{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func companyContext(id int64) context.Context {
	return companyctx.WithCompanyID(context.Background(), snowflake.ID(id))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateProfileDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(21)

	profile, err := svc.CreateProfile(ctx, domain.CreateProfileRequest{Name: "Standard"})
	require.NoError(t, err)
	assert.Equal(t, "SEK", profile.Currency)
	assert.True(t, profile.VATRate.Equal(dec("25.00")), "got %s", profile.VATRate)
}

func TestCreateProfileRequiresCompany(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateProfile(context.Background(), domain.CreateProfileRequest{Name: "Standard"})
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}

func TestLaborRatePricing(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(22)

	price := dec("485.00")
	rate, err := svc.CreateLaborRate(ctx, domain.CreateLaborRateRequest{
		Code:      "SNICK",
		UnitPrice: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "hour", rate.Unit)

	line, err := svc.PriceLabor(ctx, 22, "SNICK")
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(dec("485.00")))
	assert.Equal(t, "SNICK", line.Ref)

	_, err = svc.PriceLabor(ctx, 22, "MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLaborRateDuplicateCodeRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(23)

	price := dec("395.00")
	_, err := svc.CreateLaborRate(ctx, domain.CreateLaborRateRequest{Code: "EL", UnitPrice: &price})
	require.NoError(t, err)

	_, err = svc.CreateLaborRate(ctx, domain.CreateLaborRateRequest{Code: "EL", UnitPrice: &price})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestMaterialSellPriceIncludesMarkup(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(24)

	sku := "KAKEL-20"
	cost := dec("100.00")
	material, err := svc.CreateMaterial(ctx, domain.CreateMaterialRequest{
		SKU:      &sku,
		Name:     "Kakel 20x20",
		UnitCost: &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, "pcs", material.Unit)
	assert.True(t, material.MarkupPct.Equal(dec("20.00")))
	assert.True(t, material.SellPrice.Equal(dec("120.00")), "got %s", material.SellPrice)

	line, err := svc.PriceMaterial(ctx, 24, "KAKEL-20")
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(dec("120.00")))
	assert.Equal(t, "Kakel 20x20", line.Description)
}

func TestUpdateMaterialRepricesSell(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(25)

	sku := "GIPS-13"
	cost := dec("80.00")
	material, err := svc.CreateMaterial(ctx, domain.CreateMaterialRequest{
		SKU:      &sku,
		Name:     "Gipsskiva 13mm",
		UnitCost: &cost,
	})
	require.NoError(t, err)

	markup := dec("50.00")
	updated, err := svc.UpdateMaterial(ctx, domain.UpdateMaterialRequest{
		ID:        material.ID,
		MarkupPct: &markup,
	})
	require.NoError(t, err)
	assert.True(t, updated.SellPrice.Equal(dec("120.00")), "got %s", updated.SellPrice)
}

func TestResolveProfileFallsBackToDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(26)

	created, err := svc.CreateProfile(ctx, domain.CreateProfileRequest{
		Name:      "Standard",
		IsDefault: true,
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveProfile(ctx, 26, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)

	resolved, err = svc.ResolveProfile(ctx, 26, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}

func TestDeleteLaborRate(t *testing.T) {
	svc := newTestService(t)
	ctx := companyContext(27)

	price := dec("425.00")
	rate, err := svc.CreateLaborRate(ctx, domain.CreateLaborRateRequest{Code: "VVS", UnitPrice: &price})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLaborRate(ctx, rate.ID))

	err = svc.DeleteLaborRate(ctx, rate.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
