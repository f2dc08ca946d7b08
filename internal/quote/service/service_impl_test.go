package service

import (
	"context"
	"strings"
	"testing"

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
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	pricingrepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/repository"
	pricingservice "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/service"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/pdf"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	quoterepo "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/repository"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db/pagination"
)

type tuningStub struct {
	logged []tuningdomain.LogAdjustmentRequest
}

func (s *tuningStub) LogAdjustment(ctx context.Context, req tuningdomain.LogAdjustmentRequest) error {
	s.logged = append(s.logged, req)
	return nil
}

func (s *tuningStub) ListAdjustments(ctx context.Context, quoteID string) ([]tuningdomain.AdjustmentLogResponse, error) {
	return nil, nil
}

func (s *tuningStub) Insights(ctx context.Context, ruleKey string) (*tuningdomain.InsightsResponse, error) {
	return nil, nil
}

func (s *tuningStub) ConfidentFactor(ctx context.Context, companyID snowflake.ID, patternKey string) (*tuningdomain.AppliedFactor, error) {
	return nil, nil
}

type emailRecorder struct {
	templates []string
	to        [][]string
	data      []map[string]interface{}
}

func (r *emailRecorder) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (r *emailRecorder) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	r.templates = append(r.templates, templateName)
	r.to = append(r.to, to)
	if m, ok := data.(map[string]interface{}); ok {
		r.data = append(r.data, m)
	}
	return nil
}

type testEnv struct {
	svc     quotedomain.Service
	db      *gorm.DB
	tuning  *tuningStub
	email   *emailRecorder
	pricing pricingdomain.Service
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
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

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

	tuning := &tuningStub{}
	recorder := &emailRecorder{}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{PublicBaseURL: "http://localhost:3000"},

		Repo:       quoterepo.Provide(),
		PricingSvc: pricingSvc,
		TuningSvc:  tuning,
		CompanySvc: companySvc,
		Email:      recorder,
		PDF:        pdf.New(),
	})

	return &testEnv{svc: svc, db: db, tuning: tuning, email: recorder, pricing: pricingSvc}
}

func companyContext(id int64) context.Context {
	ctx := companyctx.WithCompanyID(context.Background(), snowflake.ID(id))
	return companyctx.WithUser(ctx, snowflake.ID(id*100), "admin")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// bathroomItems mirrors a typical renovation quote: two mandatory
// lines, a single-select material choice and one independent add-on.
func bathroomItems() []quotedomain.ItemInput {
	return []quotedomain.ItemInput{
		{Kind: quotedomain.ItemKindCustom, Description: strPtr("Rivning och förarbete"), Qty: dec("40"), Unit: strPtr("hour"), UnitPrice: decPtr("325.00")},
		{Kind: quotedomain.ItemKindCustom, Description: strPtr("Spackling av väggar"), Qty: dec("27"), Unit: strPtr("m2"), UnitPrice: decPtr("120.00")},
		{Kind: quotedomain.ItemKindMaterial, Description: strPtr("Premiumkakel"), Qty: dec("1"), UnitPrice: decPtr("5250.00"), IsOptional: true, OptionGroup: strPtr("materials")},
		{Kind: quotedomain.ItemKindMaterial, Description: strPtr("Standardkakel"), Qty: dec("27"), UnitPrice: decPtr("120.00"), IsOptional: true, OptionGroup: strPtr("materials")},
		{Kind: quotedomain.ItemKindLabor, Description: strPtr("Extra eluttag"), Qty: dec("1"), UnitPrice: decPtr("6000.00"), IsOptional: true, OptionGroup: strPtr("services")},
	}
}

func bathroomModes() map[string]string {
	return map[string]string{"materials": "single", "services": "multi"}
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(60)

	resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna Andersson",
		ProjectName:      strPtr("Badrumsrenovering"),
		OptionGroupModes: bathroomModes(),
		Items:            bathroomItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, quotedomain.QuoteStatusDraft, resp.Status)
	assert.Equal(t, "SEK", resp.Currency)
	assert.Len(t, resp.PublicToken, 32)
	assert.True(t, strings.HasPrefix(resp.QuoteNumber, "Q-"), "got %s", resp.QuoteNumber)
	assert.True(t, strings.HasSuffix(resp.QuoteNumber, "-0001"), "got %s", resp.QuoteNumber)

	// No optional line selected yet, so the totals are the base alone.
	assert.True(t, resp.BaseSubtotal.Equal(dec("16240.00")), "base %s", resp.BaseSubtotal)
	assert.True(t, resp.OptionalSubtotal.IsZero(), "optional %s", resp.OptionalSubtotal)
	assert.True(t, resp.Subtotal.Equal(dec("16240.00")), "subtotal %s", resp.Subtotal)
	assert.True(t, resp.VAT.Equal(dec("4060.00")), "vat %s", resp.VAT)
	assert.True(t, resp.Total.Equal(dec("20300.00")), "total %s", resp.Total)
	assert.Len(t, resp.Items, 5)

	events, err := env.svc.Events(ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, quotedomain.EventCreated, events[0].Type)
	assert.Equal(t, "manual", events[0].Meta["source"])
}

func TestCreateQuoteWithSelectedOptional(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(61)

	items := bathroomItems()
	items[4].IsSelected = true

	resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna Andersson",
		OptionGroupModes: bathroomModes(),
		Items:            items,
	})
	require.NoError(t, err)

	assert.True(t, resp.Subtotal.Equal(dec("22240.00")), "subtotal %s", resp.Subtotal)
	assert.True(t, resp.OptionalSubtotal.Equal(dec("6000.00")), "optional %s", resp.OptionalSubtotal)
	assert.True(t, resp.Total.Equal(dec("27800.00")), "total %s", resp.Total)

	var selected []string
	for _, item := range resp.Items {
		if item.IsOptional && item.IsSelected {
			selected = append(selected, item.ID)
		}
	}
	assert.Len(t, selected, 1)
}

func TestCreateQuoteTrimsOptionalFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(74)

	items := bathroomItems()
	items[0].Unit = strPtr("  hour  ")
	items[0].Ref = strPtr("   ")
	items[2].OptionGroup = strPtr("  materials  ")
	items[2].Description = strPtr("  Premiumkakel  ")

	resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna Andersson",
		ProjectName:      strPtr("  Badrumsrenovering  "),
		OptionGroupModes: bathroomModes(),
		Items:            items,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.ProjectName)
	assert.Equal(t, "Badrumsrenovering", *resp.ProjectName)

	require.Len(t, resp.Items, 5)
	require.NotNil(t, resp.Items[0].Unit)
	assert.Equal(t, "hour", *resp.Items[0].Unit)
	assert.Nil(t, resp.Items[0].Ref, "blank ref should be dropped")
	require.NotNil(t, resp.Items[2].OptionGroup)
	assert.Equal(t, "materials", *resp.Items[2].OptionGroup)
	require.NotNil(t, resp.Items[2].Description)
	assert.Equal(t, "Premiumkakel", *resp.Items[2].Description)
}

func TestCreateQuoteRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(62)

	_, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{CustomerName: "  ", Items: bathroomItems()})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidCustomer)

	_, err = env.svc.Create(ctx, quotedomain.CreateQuoteRequest{CustomerName: "Anna"})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidItem)

	_, err = env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna",
		Items:            bathroomItems(),
		OptionGroupModes: map[string]string{"materials": "radio"},
	})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidQuote)

	_, err = env.svc.Create(context.Background(), quotedomain.CreateQuoteRequest{CustomerName: "Anna", Items: bathroomItems()})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidCompany)
}

func TestCreateQuotePricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(63)

	_, err := env.pricing.CreateLaborRate(ctx, pricingdomain.CreateLaborRateRequest{
		Code:        "SNICK",
		Description: strPtr("Snickare"),
		UnitPrice:   decPtr("485.00"),
	})
	require.NoError(t, err)

	resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Befab Bygg",
		Items: []quotedomain.ItemInput{
			{Kind: quotedomain.ItemKindLabor, Ref: strPtr("SNICK"), Qty: dec("10")},
			{Kind: quotedomain.ItemKindMaterial, Ref: strPtr("OKÄND"), Qty: dec("2"), UnitPrice: decPtr("150.00")},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.True(t, resp.Items[0].UnitPrice.Equal(dec("485.00")), "catalog price %s", resp.Items[0].UnitPrice)
	require.NotNil(t, resp.Items[0].Description)
	assert.Equal(t, "Snickare", *resp.Items[0].Description)
	assert.True(t, resp.Items[1].UnitPrice.Equal(dec("150.00")), "fallback price %s", resp.Items[1].UnitPrice)

	// A referenced line without any resolvable price cannot be quoted.
	_, err = env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Befab Bygg",
		Items: []quotedomain.ItemInput{
			{Kind: quotedomain.ItemKindLabor, Ref: strPtr("SAKNAS"), Qty: dec("1")},
		},
	})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidItem)
}

func TestCreateQuoteUsesProfileVAT(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(64)

	profile, err := env.pricing.CreateProfile(ctx, pricingdomain.CreateProfileRequest{
		Name:    "Livsmedel",
		VATRate: decPtr("12.00"),
	})
	require.NoError(t, err)

	resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Anna",
		ProfileID:    &profile.ID,
		Items: []quotedomain.ItemInput{
			{Kind: quotedomain.ItemKindCustom, Description: strPtr("Arbete"), Qty: dec("1"), UnitPrice: decPtr("1000.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.VAT.Equal(dec("120.00")), "vat %s", resp.VAT)
	assert.True(t, resp.Total.Equal(dec("1120.00")), "total %s", resp.Total)

	_, err = env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Anna",
		ProfileID:    strPtr("123456789"),
		Items: []quotedomain.ItemInput{
			{Kind: quotedomain.ItemKindCustom, Description: strPtr("Arbete"), Qty: dec("1"), UnitPrice: decPtr("1000.00")},
		},
	})
	assert.ErrorIs(t, err, quotedomain.ErrProfileNotFound)
}

func TestCreateQuoteWithDefaultPackage(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(65)

	resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna Andersson",
		OptionGroupModes: bathroomModes(),
		Items:            bathroomItems(),
		Packages: []quotedomain.PackageInput{
			{
				Name:      "Totalentreprenad",
				IsDefault: true,
				Items: []quotedomain.ItemInput{
					{Kind: quotedomain.ItemKindCustom, Description: strPtr("Komplett badrum"), Qty: dec("1"), UnitPrice: decPtr("34350.00")},
				},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Packages, 1)
	pkg := resp.Packages[0]
	assert.True(t, pkg.IsDefault)
	assert.Equal(t, "Totalentreprenad", pkg.Name)
	assert.True(t, pkg.Subtotal.Equal(dec("34350.00")), "subtotal %s", pkg.Subtotal)
	assert.True(t, pkg.Total.Equal(dec("42937.50")), "total %s", pkg.Total)
	require.Len(t, pkg.Items, 1)
	assert.True(t, pkg.Items[0].LineTotal.Equal(dec("34350.00")))

	_, err = env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Anna",
		Items:        bathroomItems(),
		Packages:     []quotedomain.PackageInput{{Name: " "}},
	})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidPackage)
}

func TestUpdateQuoteLogsQuantityAdjustments(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(66)

	_, err := env.pricing.CreateLaborRate(ctx, pricingdomain.CreateLaborRateRequest{
		Code:      "SNICK",
		UnitPrice: decPtr("485.00"),
	})
	require.NoError(t, err)

	created, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Anna",
		Items: []quotedomain.ItemInput{
			{Kind: quotedomain.ItemKindLabor, Ref: strPtr("SNICK"), Qty: dec("10")},
		},
	})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, quotedomain.UpdateQuoteRequest{
		ID:     created.ID,
		Reason: strPtr("Kunden ville ha mer"),
		Items: []quotedomain.ItemInput{
			{Kind: quotedomain.ItemKindLabor, Ref: strPtr("SNICK"), Qty: dec("12")},
		},
	})
	require.NoError(t, err)
	assert.True(t, updated.Subtotal.Equal(dec("5820.00")), "subtotal %s", updated.Subtotal)
	assert.True(t, updated.Total.Equal(dec("7275.00")), "total %s", updated.Total)

	require.Len(t, env.tuning.logged, 1)
	logged := env.tuning.logged[0]
	assert.Equal(t, "SNICK", logged.ItemRef)
	assert.True(t, logged.OriginalQty.Equal(dec("10")))
	assert.True(t, logged.AdjustedQty.Equal(dec("12")))
	assert.True(t, logged.OriginalUnitPrice.Equal(dec("485.00")))
	require.NotNil(t, logged.Reason)
	assert.Equal(t, "Kunden ville ha mer", *logged.Reason)
}

func TestUpdateQuoteWithoutItemsKeepsLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(67)

	created, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna",
		OptionGroupModes: bathroomModes(),
		Items:            bathroomItems(),
	})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, quotedomain.UpdateQuoteRequest{
		ID:           created.ID,
		CustomerName: strPtr("Anna Svensson"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna Svensson", updated.CustomerName)
	assert.Len(t, updated.Items, 5)
	assert.True(t, updated.Total.Equal(created.Total))
	assert.Empty(t, env.tuning.logged)
}

func TestUpdateQuoteNotEditableAfterAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(68)

	created, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Anna",
		Items:        bathroomItems(),
	})
	require.NoError(t, err)

	quoteID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)
	require.NoError(t, env.db.Exec(
		"UPDATE quotes SET status = ? WHERE id = ?",
		string(quotedomain.QuoteStatusAccepted), quoteID.Int64(),
	).Error)

	_, err = env.svc.Update(ctx, quotedomain.UpdateQuoteRequest{
		ID:           created.ID,
		CustomerName: strPtr("Anna Svensson"),
	})
	assert.ErrorIs(t, err, quotedomain.ErrQuoteNotEditable)

	_, err = env.svc.Send(ctx, quotedomain.SendQuoteRequest{ID: created.ID, ToEmail: "anna@example.com"})
	assert.ErrorIs(t, err, quotedomain.ErrQuoteNotEditable)
}

func TestSendQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(69)

	created, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName: "Anna Andersson",
		ProjectName:  strPtr("Badrumsrenovering"),
		Items:        bathroomItems(),
	})
	require.NoError(t, err)

	sent, err := env.svc.Send(ctx, quotedomain.SendQuoteRequest{
		ID:      created.ID,
		ToEmail: "Anna@Example.com",
		Message: "Hör av dig vid frågor!",
	})
	require.NoError(t, err)
	assert.Equal(t, quotedomain.QuoteStatusSent, sent.Status)
	assert.Equal(t, "http://localhost:3000/public/quotes/"+created.PublicToken, sent.PublicURL)

	require.Len(t, env.email.templates, 1)
	assert.Equal(t, "quote_sent", env.email.templates[0])
	assert.Equal(t, []string{"anna@example.com"}, env.email.to[0])
	require.Len(t, env.email.data, 1)
	assert.Equal(t, sent.PublicURL, env.email.data[0]["public_url"])

	// Re-sending stays allowed and records another event.
	_, err = env.svc.Send(ctx, quotedomain.SendQuoteRequest{ID: created.ID, ToEmail: "anna@example.com"})
	require.NoError(t, err)

	events, err := env.svc.Events(ctx, created.ID)
	require.NoError(t, err)
	sentEvents := 0
	for _, event := range events {
		if event.Type == quotedomain.EventSent {
			sentEvents++
		}
	}
	assert.Equal(t, 2, sentEvents)

	_, err = env.svc.Send(ctx, quotedomain.SendQuoteRequest{ID: created.ID, ToEmail: "inte-en-adress"})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidRecipient)
}

func TestListQuotesFiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(70)

	names := []string{"Anna Andersson", "Befab Bygg", "Cecilia Ek"}
	var lastID string
	for _, name := range names {
		resp, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
			CustomerName: name,
			Items:        bathroomItems(),
		})
		require.NoError(t, err)
		lastID = resp.ID
	}

	_, err := env.svc.Send(ctx, quotedomain.SendQuoteRequest{ID: lastID, ToEmail: "c@example.com"})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, quotedomain.ListQuotesRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Quotes, 3)

	sentStatus := quotedomain.QuoteStatusSent
	sentOnly, err := env.svc.List(ctx, quotedomain.ListQuotesRequest{Status: &sentStatus})
	require.NoError(t, err)
	require.Len(t, sentOnly.Quotes, 1)
	assert.Equal(t, "Cecilia Ek", sentOnly.Quotes[0].CustomerName)

	search, err := env.svc.List(ctx, quotedomain.ListQuotesRequest{Search: "befab"})
	require.NoError(t, err)
	require.Len(t, search.Quotes, 1)
	assert.Equal(t, "Befab Bygg", search.Quotes[0].CustomerName)

	first, err := env.svc.List(ctx, quotedomain.ListQuotesRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	assert.Len(t, first.Quotes, 2)
	require.NotNil(t, first.PageInfo)
	assert.True(t, first.PageInfo.HasMore)
	require.NotEmpty(t, first.PageInfo.NextPageToken)

	second, err := env.svc.List(ctx, quotedomain.ListQuotesRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	assert.Len(t, second.Quotes, 1)
	assert.False(t, second.PageInfo.HasMore)
}

func TestGetQuoteScopedToCompany(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.svc.Create(companyContext(71), quotedomain.CreateQuoteRequest{
		CustomerName: "Anna",
		Items:        bathroomItems(),
	})
	require.NoError(t, err)

	_, err = env.svc.Get(companyContext(72), created.ID)
	assert.ErrorIs(t, err, quotedomain.ErrQuoteNotFound)

	got, err := env.svc.Get(companyContext(71), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t)
	ctx := companyContext(73)

	items := bathroomItems()
	items[2].IsSelected = true

	created, err := env.svc.Create(ctx, quotedomain.CreateQuoteRequest{
		CustomerName:     "Anna Andersson",
		ProjectName:      strPtr("Badrumsrenovering"),
		OptionGroupModes: bathroomModes(),
		Items:            items,
	})
	require.NoError(t, err)

	export, err := env.svc.ExportPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", export.ContentType)
	assert.True(t, strings.HasPrefix(export.Filename, "quote_"), "got %s", export.Filename)
	assert.True(t, strings.HasSuffix(export.Filename, ".pdf"), "got %s", export.Filename)
	assert.Equal(t, "quote_"+created.ID[:8]+".pdf", export.Filename)
	require.NotEmpty(t, export.Data)
	assert.Equal(t, "%PDF", string(export.Data[:4]))
}
