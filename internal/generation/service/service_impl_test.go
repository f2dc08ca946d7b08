package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	companydomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	companyrepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/repository"
	companyservice "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/service"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
	generationrepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/repository"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	pricingrepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/repository"
	pricingservice "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/service"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/email"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/pdf"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	quoterepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/repository"
	quoteservice "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/service"
	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
	requirementsrepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/repository"
	requirementsservice "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/service"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
	tuningrepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/repository"
	tuningservice "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/service"
)

type testEnv struct {
	svc          domain.Service
	quotes       quotedomain.Service
	pricing      pricingdomain.Service
	requirements requirementsdomain.Service
	db           *gorm.DB
	node         *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&quotedomain.Quote{},
		&quotedomain.QuoteItem{},
		&quotedomain.QuotePackage{},
		&quotedomain.QuoteEvent{},
		&pricingdomain.PriceProfile{},
		&pricingdomain.LaborRate{},
		&pricingdomain.Material{},
		&companydomain.Company{},
		&requirementsdomain.ProjectRequirements{},
		&domain.GenerationRule{},
		&tuningdomain.QuoteAdjustmentLog{},
		&tuningdomain.TuningStat{},
		&tuningdomain.AutoTuningPattern{},
	))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	pricingHolder := config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())

	pricingSvc := pricingservice.New(pricingservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  pricingrepo.Provide(),
	})
	companySvc := companyservice.New(companyservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  companyrepo.Provide(),
	})
	tuningSvc := tuningservice.New(tuningservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Pricing: pricingHolder,
		Repo:    tuningrepo.Provide(),
	})
	requirementsSvc := requirementsservice.New(requirementsservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  requirementsrepo.Provide(),
	})
	quotes := quoteservice.New(quoteservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{PublicBaseURL: "http://localhost:3000"},

		Repo:       quoterepo.Provide(),
		PricingSvc: pricingSvc,
		TuningSvc:  tuningSvc,
		CompanySvc: companySvc,
		Email:      &email.NoOpProvider{},
		PDF:        pdf.New(),
	})

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,

		Repo:            generationrepo.Provide(),
		QuoteSvc:        quotes,
		PricingSvc:      pricingSvc,
		RequirementsSvc: requirementsSvc,
		TuningSvc:       tuningSvc,
	})

	return &testEnv{
		svc:          svc,
		quotes:       quotes,
		pricing:      pricingSvc,
		requirements: requirementsSvc,
		db:           db,
		node:         node,
	}
}

func companyContext(id int64) context.Context {
	ctx := companyctx.WithCompanyID(context.Background(), snowflake.ID(id))
	return companyctx.WithUser(ctx, snowflake.ID(id*100), "admin")
}

func seedCompany(t *testing.T, env *testEnv, id int64, name string) {
	t.Helper()
	require.NoError(t, env.db.Create(&companydomain.Company{
		ID:   snowflake.ID(id),
		Name: name,
		Slug: fmt.Sprintf("company-%d", id),
	}).Error)
}

// seedCatalog sets up the default profile and the priced refs the
// bathroom rule set points at.
func seedCatalog(t *testing.T, env *testEnv, companyID int64) {
	t.Helper()
	ctx := companyContext(companyID)

	_, err := env.pricing.CreateProfile(ctx, pricingdomain.CreateProfileRequest{
		Name:      "Standard",
		Currency:  "SEK",
		VATRate:   decPtr("25.00"),
		IsDefault: true,
	})
	require.NoError(t, err)

	_, err = env.pricing.CreateLaborRate(ctx, pricingdomain.CreateLaborRateRequest{
		Code:        "SNICK",
		Description: strPtr("Snickeriarbete"),
		Unit:        "hour",
		UnitPrice:   decPtr("650.00"),
	})
	require.NoError(t, err)

	_, err = env.pricing.CreateLaborRate(ctx, pricingdomain.CreateLaborRateRequest{
		Code:        "VVS",
		Description: strPtr("VVS-arbete"),
		Unit:        "hour",
		UnitPrice:   decPtr("750.00"),
	})
	require.NoError(t, err)

	_, err = env.pricing.CreateMaterial(ctx, pricingdomain.CreateMaterialRequest{
		SKU:       strPtr("KAKEL20"),
		Name:      "Kakel 20x20 vit",
		Unit:      "m2",
		UnitCost:  decPtr("250.00"),
		MarkupPct: decPtr("20.00"),
	})
	require.NoError(t, err)
}

func seedIntake(t *testing.T, env *testEnv, companyID int64, data requirementsdomain.RequirementsData) string {
	t.Helper()
	resp, err := env.requirements.Create(companyContext(companyID), requirementsdomain.CreateRequirementsRequest{Data: data})
	require.NoError(t, err)
	return resp.ID
}

func bathroomIntake() requirementsdomain.RequirementsData {
	return requirementsdomain.RequirementsData{
		RoomType:          requirementsdomain.RoomTypeBathroom,
		AreaM2:            dec("10.0"),
		FinishLevel:       requirementsdomain.FinishLevelStandard,
		HasPlumbingWork:   true,
		HasElectricalWork: false,
	}
}

// bathroomRules exercises both entry forms: bare expressions and the
// object form with optionality.
func bathroomRules() map[string]map[string]any {
	return map[string]map[string]any{
		"labor": {
			"SNICK": "8 + areaM2 * 1.5",
			"VVS":   "case(hasPlumbingWork, 6, 0)",
		},
		"materials": {
			"KAKEL20": map[string]any{"qty": "areaM2 * 1.2", "optional": true, "group": "tillval"},
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCreateGenerationRule(t *testing.T) {
	env := newTestEnv(t)
	seedCompany(t, env, 110, "Regelbolaget AB")
	ctx := companyContext(110)

	created, err := env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "bathroom|standard",
		Rules: bathroomRules(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "bathroom|standard", created.Key)
	assert.Equal(t, "8 + areaM2 * 1.5", created.Rules["labor"]["SNICK"])

	fetched, err := env.svc.GetRule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Key, fetched.Key)

	spec, ok := fetched.Rules["materials"]["KAKEL20"].(map[string]any)
	require.True(t, ok, "object entry should survive the round trip")
	assert.Equal(t, "areaM2 * 1.2", spec["qty"])
	assert.Equal(t, true, spec["optional"])
	assert.Equal(t, "tillval", spec["group"])

	byKey, err := env.svc.GetRuleByKey(ctx, "bathroom|standard")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byKey.ID)

	_, err = env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "bathroom|standard",
		Rules: bathroomRules(),
	})
	assert.ErrorIs(t, err, domain.ErrRuleExists)

	for _, key := range []string{"bathroom", "bathroom|gold", "attic|standard", ""} {
		_, err = env.svc.CreateRule(ctx, domain.CreateRuleRequest{Key: key, Rules: bathroomRules()})
		assert.ErrorIs(t, err, domain.ErrInvalidKey, "key %q", key)
	}

	badRules := []map[string]map[string]any{
		nil,
		{"paint": {"FARG": "areaM2"}},
		{"labor": {}},
		{"labor": {"SNICK": "8 +* 2"}},
		{"labor": {"SNICK": "areaM3 * 2"}},
		{"labor": {"SNICK": "ceil(areaM2"}},
		{"materials": {"KAKEL20": map[string]any{"optional": true}}},
		{"materials": {"KAKEL20": map[string]any{"qty": "1", "mode": "single"}}},
	}
	for i, rules := range badRules {
		_, err = env.svc.CreateRule(ctx, domain.CreateRuleRequest{Key: "kitchen|basic", Rules: rules})
		assert.ErrorIs(t, err, domain.ErrInvalidRules, "case %d", i)
	}

	_, err = env.svc.GetRuleByKey(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	_, err = env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{Key: "bathroom|basic", Rules: bathroomRules()})
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}

func TestAutoGenerateCreatesDraft(t *testing.T) {
	env := newTestEnv(t)
	seedCompany(t, env, 111, "Genererade Bygg AB")
	seedCatalog(t, env, 111)
	ctx := companyContext(111)

	_, err := env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "bathroom|standard",
		Rules: bathroomRules(),
	})
	require.NoError(t, err)

	intakeID := seedIntake(t, env, 111, bathroomIntake())

	out, err := env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: intakeID,
		CustomerName:   "Anna Andersson",
		ProjectName:    strPtr("Badrumsrenovering"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.QuoteID)
	assert.NotEmpty(t, out.QuoteNumber)
	assert.Equal(t, intakeID, out.RequirementsID)

	require.Len(t, out.Items, 3)
	snick, vvs, kakel := out.Items[0], out.Items[1], out.Items[2]

	assert.Equal(t, "labor", snick.Kind)
	assert.Equal(t, "SNICK", snick.Ref)
	assert.True(t, snick.Qty.Equal(dec("23.00")), "snick qty %s", snick.Qty)
	assert.True(t, snick.UnitPrice.Equal(dec("650.00")), "snick unit %s", snick.UnitPrice)
	assert.True(t, snick.LineTotal.Equal(dec("14950.00")), "snick line %s", snick.LineTotal)
	assert.False(t, snick.IsOptional)
	assert.Nil(t, snick.TuningFactor)
	assert.True(t, snick.Confidence.Equal(dec("0.50")), "confidence %s", snick.Confidence)
	require.NotNil(t, snick.Description)
	assert.Equal(t, "Snickeriarbete", *snick.Description)

	assert.Equal(t, "VVS", vvs.Ref)
	assert.True(t, vvs.Qty.Equal(dec("6.00")), "vvs qty %s", vvs.Qty)
	assert.True(t, vvs.LineTotal.Equal(dec("4500.00")), "vvs line %s", vvs.LineTotal)

	assert.Equal(t, "material", kakel.Kind)
	assert.Equal(t, "KAKEL20", kakel.Ref)
	assert.True(t, kakel.Qty.Equal(dec("12.00")), "kakel qty %s", kakel.Qty)
	assert.True(t, kakel.UnitPrice.Equal(dec("300.00")), "kakel unit %s", kakel.UnitPrice)
	assert.True(t, kakel.LineTotal.Equal(dec("3600.00")), "kakel line %s", kakel.LineTotal)
	assert.True(t, kakel.IsOptional)
	require.NotNil(t, kakel.OptionGroup)
	assert.Equal(t, "tillval", *kakel.OptionGroup)

	require.Len(t, out.ConfidencePerItem, 3)
	for i, c := range out.ConfidencePerItem {
		assert.True(t, c.Equal(dec("0.50")), "confidence %d %s", i, c)
	}

	// Optional lines stay unselected, so the persisted totals cover
	// mandatory work only.
	assert.True(t, out.Subtotal.Equal(dec("19450.00")), "subtotal %s", out.Subtotal)
	assert.True(t, out.VAT.Equal(dec("4862.50")), "vat %s", out.VAT)
	assert.True(t, out.Total.Equal(dec("24312.50")), "total %s", out.Total)

	quote, err := env.quotes.Get(ctx, out.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, quotedomain.QuoteStatusDraft, quote.Status)
	assert.Equal(t, "Anna Andersson", quote.CustomerName)
	assert.Equal(t, "SEK", quote.Currency)
	assert.Equal(t, map[string]string{"tillval": "multi"}, quote.OptionGroupModes)
	assert.True(t, quote.BaseSubtotal.Equal(dec("19450.00")), "base %s", quote.BaseSubtotal)
	assert.True(t, quote.OptionalSubtotal.Equal(dec("3600.00")), "optional %s", quote.OptionalSubtotal)
	require.Len(t, quote.Items, 3)
	for _, item := range quote.Items {
		assert.False(t, item.IsSelected)
	}

	events, err := env.quotes.Events(ctx, out.QuoteID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	var createdMeta map[string]any
	for _, event := range events {
		if event.Type == quotedomain.EventCreated {
			createdMeta = event.Meta
		}
	}
	require.NotNil(t, createdMeta)
	assert.Equal(t, "auto_generation", createdMeta["source"])

	linked, err := env.requirements.GetByQuote(ctx, out.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, intakeID, linked.ID)

	// Conditional rule: without plumbing work the VVS line evaluates
	// to zero and is dropped.
	dryIntake := bathroomIntake()
	dryIntake.HasPlumbingWork = false
	dryID := seedIntake(t, env, 111, dryIntake)

	dry, err := env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: dryID,
		CustomerName:   "Bertil Berg",
	})
	require.NoError(t, err)
	require.Len(t, dry.Items, 2)
	assert.Equal(t, "SNICK", dry.Items[0].Ref)
	assert.Equal(t, "KAKEL20", dry.Items[1].Ref)
	assert.True(t, dry.Subtotal.Equal(dec("14950.00")), "subtotal %s", dry.Subtotal)

	_, err = env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: intakeID,
		CustomerName:   "   ",
	})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidCustomer)
}

func TestAutoGenerateAppliesTuning(t *testing.T) {
	env := newTestEnv(t)
	seedCompany(t, env, 112, "Tunade Bygg AB")
	seedCatalog(t, env, 112)
	ctx := companyContext(112)

	_, err := env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "bathroom|standard",
		Rules: bathroomRules(),
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, env.db.Create(&tuningdomain.AutoTuningPattern{
		ID:               env.node.Generate(),
		CompanyID:        snowflake.ID(112),
		PatternKey:       "bathroom|standard|SNICK",
		AdjustmentFactor: dec("1.2"),
		ConfidenceScore:  dec("0.7"),
		SampleCount:      3,
		LastAdjustedAt:   now,
		CreatedAt:        now,
	}).Error)

	intakeID := seedIntake(t, env, 112, bathroomIntake())

	out, err := env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: intakeID,
		CustomerName:   "Cecilia Ceder",
	})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)

	snick := out.Items[0]
	assert.Equal(t, "SNICK", snick.Ref)
	assert.True(t, snick.Qty.Equal(dec("27.60")), "tuned qty %s", snick.Qty)
	assert.True(t, snick.LineTotal.Equal(dec("17940.00")), "tuned line %s", snick.LineTotal)
	require.NotNil(t, snick.TuningFactor)
	assert.True(t, snick.TuningFactor.Equal(dec("1.2")), "factor %s", snick.TuningFactor)
	assert.True(t, snick.Confidence.Equal(dec("0.7")), "confidence %s", snick.Confidence)

	assert.Nil(t, out.Items[1].TuningFactor)
	assert.True(t, out.Items[1].Confidence.Equal(dec("0.50")), "vvs confidence %s", out.Items[1].Confidence)

	assert.True(t, out.Subtotal.Equal(dec("22440.00")), "subtotal %s", out.Subtotal)
	assert.True(t, out.VAT.Equal(dec("5610.00")), "vat %s", out.VAT)
	assert.True(t, out.Total.Equal(dec("28050.00")), "total %s", out.Total)
}

func TestAutoGenerateErrors(t *testing.T) {
	env := newTestEnv(t)
	seedCompany(t, env, 113, "Felande Bygg AB")
	seedCatalog(t, env, 113)
	ctx := companyContext(113)

	_, err := env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: "999999",
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrRequirementsNotFound)

	_, err = env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: "not-an-id",
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrRequirementsNotFound)

	kitchenID := seedIntake(t, env, 113, requirementsdomain.RequirementsData{
		RoomType:    requirementsdomain.RoomTypeKitchen,
		AreaM2:      dec("18"),
		FinishLevel: requirementsdomain.FinishLevelPremium,
	})
	_, err = env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: kitchenID,
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrNoGenerationRule)

	_, err = env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "flooring|basic",
		Rules: map[string]map[string]any{"labor": {"PARKETT": "areaM2 * 0.5"}},
	})
	require.NoError(t, err)
	flooringID := seedIntake(t, env, 113, requirementsdomain.RequirementsData{
		RoomType:    requirementsdomain.RoomTypeFlooring,
		AreaM2:      dec("30"),
		FinishLevel: requirementsdomain.FinishLevelBasic,
	})
	_, err = env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: flooringID,
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownRef)

	_, err = env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "kitchen|basic",
		Rules: map[string]map[string]any{"labor": {"SNICK": "0"}},
	})
	require.NoError(t, err)
	emptyID := seedIntake(t, env, 113, requirementsdomain.RequirementsData{
		RoomType:    requirementsdomain.RoomTypeKitchen,
		AreaM2:      dec("12"),
		FinishLevel: requirementsdomain.FinishLevelBasic,
	})
	_, err = env.svc.AutoGenerate(ctx, domain.AutoGenerateRequest{
		RequirementsID: emptyID,
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrEmptyGeneration)

	// No price profile seeded for this company.
	seedCompany(t, env, 115, "Oprissatta Bygg AB")
	noProfileCtx := companyContext(115)
	_, err = env.svc.CreateRule(noProfileCtx, domain.CreateRuleRequest{
		Key:   "bathroom|standard",
		Rules: bathroomRules(),
	})
	require.NoError(t, err)
	noProfileIntake := seedIntake(t, env, 115, bathroomIntake())
	_, err = env.svc.AutoGenerate(noProfileCtx, domain.AutoGenerateRequest{
		RequirementsID: noProfileIntake,
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)

	_, err = env.svc.AutoGenerate(context.Background(), domain.AutoGenerateRequest{
		RequirementsID: kitchenID,
		CustomerName:   "Kund",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}

func TestUpdateAndDeleteRule(t *testing.T) {
	env := newTestEnv(t)
	seedCompany(t, env, 114, "Justerade Bygg AB")
	ctx := companyContext(114)

	bathroom, err := env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "bathroom|standard",
		Rules: bathroomRules(),
	})
	require.NoError(t, err)
	kitchen, err := env.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Key:   "kitchen|premium",
		Rules: map[string]map[string]any{"labor": {"SNICK": "areaM2 * 2"}},
	})
	require.NoError(t, err)

	listed, err := env.svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "bathroom|standard", listed[0].Key)
	assert.Equal(t, "kitchen|premium", listed[1].Key)

	updated, err := env.svc.UpdateRule(ctx, domain.UpdateRuleRequest{
		ID:    bathroom.ID,
		Rules: map[string]map[string]any{"labor": {"SNICK": "10 + areaM2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "bathroom|standard", updated.Key)
	assert.Equal(t, "10 + areaM2", updated.Rules["labor"]["SNICK"])
	_, ok := updated.Rules["materials"]
	assert.False(t, ok, "replaced rules should not keep old sections")

	_, err = env.svc.UpdateRule(ctx, domain.UpdateRuleRequest{
		ID:  bathroom.ID,
		Key: strPtr("kitchen|premium"),
	})
	assert.ErrorIs(t, err, domain.ErrRuleExists)

	moved, err := env.svc.UpdateRule(ctx, domain.UpdateRuleRequest{
		ID:  bathroom.ID,
		Key: strPtr("flooring|premium"),
	})
	require.NoError(t, err)
	assert.Equal(t, "flooring|premium", moved.Key)

	_, err = env.svc.UpdateRule(ctx, domain.UpdateRuleRequest{
		ID:    bathroom.ID,
		Rules: map[string]map[string]any{"labor": {"SNICK": "8 +* 2"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRules)

	require.NoError(t, env.svc.DeleteRule(ctx, kitchen.ID))
	err = env.svc.DeleteRule(ctx, kitchen.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.svc.GetRule(ctx, kitchen.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Rules are company scoped.
	_, err = env.svc.GetRule(companyContext(116), bathroom.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.GetRule(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
