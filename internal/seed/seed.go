// Package seed bootstraps a fresh database with a demo company so the
// app is usable right after first startup: login accounts, a price
// catalog, generation rules, and one sample quote with a package.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	authdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/password"
	companydomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	generationdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/format"
)

const (
	demoCompanyName = "Demo Bygg AB"
	demoCompanySlug = "demo-bygg-ab"

	demoAdminEmail = "admin@demobygg.se"
	demoAdminName  = "Demo Admin"
	demoSalesEmail = "saljare@demobygg.se"
	demoSalesName  = "Sara Säljare"

	// Documented default for local setups. Users flagged IsDefault
	// still carry it until they change their password.
	demoPassword = "demo1234"
)

// Run seeds the demo company and its catalog. Every step is idempotent
// so restarts leave existing rows alone.
func Run(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var publicToken string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := ensureCompanyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		admin, err := ensureUserTx(ctx, tx, node, company.ID, demoAdminEmail, demoAdminName, "admin")
		if err != nil {
			return err
		}
		if _, err := ensureUserTx(ctx, tx, node, company.ID, demoSalesEmail, demoSalesName, "sales"); err != nil {
			return err
		}
		profile, err := ensureProfileTx(ctx, tx, node, company.ID)
		if err != nil {
			return err
		}
		if err := ensureCatalogTx(ctx, tx, node, company.ID); err != nil {
			return err
		}
		if err := ensureGenerationRulesTx(ctx, tx, node, company.ID); err != nil {
			return err
		}
		publicToken, err = ensureDemoQuoteTx(ctx, tx, node, company, profile, admin)
		return err
	})
	if err != nil {
		return err
	}

	if publicToken != "" && log != nil {
		log.Info("demo company seeded",
			zap.String("company_slug", demoCompanySlug),
			zap.String("admin_email", demoAdminEmail),
			zap.String("quote_public_token", publicToken),
		)
	}
	return nil
}

func ensureCompanyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (companydomain.Company, error) {
	var company companydomain.Company
	err := tx.WithContext(ctx).Where("slug = ?", demoCompanySlug).First(&company).Error
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return company, err
	}
	now := time.Now().UTC()
	company = companydomain.Company{
		ID:           node.Generate(),
		Name:         demoCompanyName,
		Slug:         demoCompanySlug,
		SupportEmail: "info@demobygg.se",
		CountryCode:  "SE",
		TimezoneName: "Europe/Stockholm",
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		return company, err
	}
	return company, nil
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID, email, displayName, role string) (authdomain.User, error) {
	email = strings.ToLower(email)

	var user authdomain.User
	err := tx.WithContext(ctx).
		Where("provider = ? AND email = ?", authdomain.ProviderLocal, email).
		First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	hashed, err := password.Hash(demoPassword)
	if err != nil {
		return user, err
	}
	now := time.Now().UTC()
	user = authdomain.User{
		ID:                  node.Generate(),
		ExternalID:          uuid.NewString(),
		Provider:            authdomain.ProviderLocal,
		CompanyID:           companyID,
		Email:               email,
		DisplayName:         displayName,
		PasswordHash:        &hashed,
		Role:                role,
		IsDefault:           true,
		LastPasswordChanged: nil,
		Metadata:            datatypes.JSONMap{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureProfileTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) (pricingdomain.PriceProfile, error) {
	var profile pricingdomain.PriceProfile
	err := tx.WithContext(ctx).
		Where("company_id = ? AND name = ?", companyID.Int64(), "Standard").
		First(&profile).Error
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return profile, err
	}
	now := time.Now().UTC()
	profile = pricingdomain.PriceProfile{
		ID:        node.Generate().Int64(),
		CompanyID: companyID.Int64(),
		Name:      "Standard",
		Currency:  "SEK",
		VATRate:   decimal.RequireFromString("25.00"),
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&profile).Error; err != nil {
		return profile, err
	}
	return profile, nil
}

func ensureCatalogTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) error {
	type laborSeed struct {
		Code        string
		Description string
		UnitPrice   string
	}
	labor := []laborSeed{
		{"SNICK", "Snickeriarbete", "650.00"},
		{"VVS", "VVS-arbete", "750.00"},
		{"EL", "Elarbete", "850.00"},
	}
	for _, l := range labor {
		var existing pricingdomain.LaborRate
		err := tx.WithContext(ctx).
			Where("company_id = ? AND code = ?", companyID.Int64(), l.Code).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		desc := l.Description
		rate := pricingdomain.LaborRate{
			ID:          node.Generate().Int64(),
			CompanyID:   companyID.Int64(),
			Code:        l.Code,
			Description: &desc,
			Unit:        "hour",
			UnitPrice:   decimal.RequireFromString(l.UnitPrice),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&rate).Error; err != nil {
			return err
		}
	}

	type materialSeed struct {
		SKU       string
		Name      string
		Unit      string
		UnitCost  string
		MarkupPct string
	}
	materials := []materialSeed{
		{"KAKEL20", "Kakel 20x20 vit", "m2", "250.00", "20.00"},
		{"FOG5", "Fogmassa 5 kg", "pcs", "95.00", "20.00"},
		{"PARKETT14", "Parkett ekstav 14 mm", "m2", "320.00", "20.00"},
	}
	for _, m := range materials {
		var existing pricingdomain.Material
		err := tx.WithContext(ctx).
			Where("company_id = ? AND sku = ?", companyID.Int64(), m.SKU).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		sku := m.SKU
		material := pricingdomain.Material{
			ID:        node.Generate().Int64(),
			CompanyID: companyID.Int64(),
			SKU:       &sku,
			Name:      m.Name,
			Unit:      m.Unit,
			UnitCost:  decimal.RequireFromString(m.UnitCost),
			MarkupPct: decimal.RequireFromString(m.MarkupPct),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&material).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureGenerationRulesTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) error {
	rules := map[string]datatypes.JSONMap{
		"bathroom|standard": {
			"labor": map[string]any{
				"SNICK": "8 + areaM2 * 1.5",
				"VVS":   "case(hasPlumbingWork, 6, 0)",
				"EL":    "case(hasElectricalWork, 4, 0)",
			},
			"materials": map[string]any{
				"KAKEL20": map[string]any{"qty": "areaM2 * 1.2", "optional": true, "group": "tillval"},
				"FOG5":    "ceil(areaM2 / 5)",
			},
		},
		"flooring|basic": {
			"labor": map[string]any{
				"SNICK": "areaM2 * 0.4",
			},
			"materials": map[string]any{
				"PARKETT14": "areaM2 * 1.05",
			},
		},
	}

	for key, ruleSet := range rules {
		var existing generationdomain.GenerationRule
		err := tx.WithContext(ctx).
			Where("company_id = ? AND key = ?", companyID, key).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		rule := generationdomain.GenerationRule{
			ID:        node.Generate(),
			CompanyID: companyID,
			Key:       key,
			Rules:     ruleSet,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&rule).Error; err != nil {
			return err
		}
	}
	return nil
}

// ensureDemoQuoteTx writes a sent sample quote with optional lines and
// one package so the public page has something to show. Returns the
// public token when the quote was created in this run.
func ensureDemoQuoteTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, company companydomain.Company, profile pricingdomain.PriceProfile, admin authdomain.User) (string, error) {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&quotedomain.Quote{}).
		Where("company_id = ?", company.ID).
		Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	now := time.Now().UTC()
	quoteID := node.Generate()
	token, err := newPublicToken()
	if err != nil {
		return "", err
	}
	quoteNumber, err := format.FormatQuoteNumber(format.DefaultQuoteNumberTemplate, now, 1)
	if err != nil {
		return "", err
	}

	dec := decimal.RequireFromString
	str := func(s string) *string { return &s }

	items := []*quotedomain.QuoteItem{
		{Kind: quotedomain.ItemKindCustom, Description: str("Rivning och förarbete"), Qty: dec("40"), Unit: str("hour"), UnitPrice: dec("325.00"), LineTotal: dec("13000.00"), Sort: 0},
		{Kind: quotedomain.ItemKindCustom, Description: str("Spackling av väggar"), Qty: dec("27"), Unit: str("m2"), UnitPrice: dec("120.00"), LineTotal: dec("3240.00"), Sort: 1},
		{Kind: quotedomain.ItemKindMaterial, Description: str("Premiumkakel"), Qty: dec("1"), UnitPrice: dec("5250.00"), LineTotal: dec("5250.00"), IsOptional: true, OptionGroup: str("materials"), Sort: 2},
		{Kind: quotedomain.ItemKindMaterial, Description: str("Standardkakel"), Qty: dec("27"), UnitPrice: dec("120.00"), LineTotal: dec("3240.00"), IsOptional: true, OptionGroup: str("materials"), Sort: 3},
		{Kind: quotedomain.ItemKindLabor, Description: str("Extra eluttag"), Qty: dec("1"), UnitPrice: dec("6000.00"), LineTotal: dec("6000.00"), IsOptional: true, OptionGroup: str("services"), Sort: 4},
	}
	for _, item := range items {
		item.ID = node.Generate()
		item.QuoteID = quoteID
		item.CreatedAt = now
	}

	profileID := snowflake.ID(profile.ID)
	quote := &quotedomain.Quote{
		ID:               quoteID,
		CompanyID:        company.ID,
		Seq:              1,
		QuoteNumber:      quoteNumber,
		CustomerName:     "Anna Andersson",
		ProjectName:      str("Badrumsrenovering Sjögatan 12"),
		ProfileID:        &profileID,
		Currency:         "SEK",
		Status:           quotedomain.QuoteStatusSent,
		PublicToken:      token,
		OptionGroupModes: datatypes.JSONMap{"materials": "single", "services": "multi"},
		Subtotal:         dec("16240.00"),
		VAT:              dec("4060.00"),
		Total:            dec("20300.00"),
		CreatedBy:        admin.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(quote).Error; err != nil {
		return "", err
	}
	for _, item := range items {
		if err := tx.WithContext(ctx).Create(item).Error; err != nil {
			return "", err
		}
	}

	snapshot, err := json.Marshal([]quotedomain.PackageItem{
		{Kind: quotedomain.ItemKindCustom, Description: "Komplett badrum", Qty: dec("1"), UnitPrice: dec("34350.00"), LineTotal: dec("34350.00")},
	})
	if err != nil {
		return "", err
	}
	pkg := &quotedomain.QuotePackage{
		ID:        node.Generate(),
		QuoteID:   quoteID,
		Name:      "Totalentreprenad",
		Items:     datatypes.JSON(snapshot),
		Subtotal:  dec("34350.00"),
		VAT:       dec("8587.50"),
		Total:     dec("42937.50"),
		IsDefault: true,
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(pkg).Error; err != nil {
		return "", err
	}

	events := []*quotedomain.QuoteEvent{
		{ID: node.Generate(), QuoteID: quoteID, Type: quotedomain.EventCreated, Meta: datatypes.JSONMap{"source": "seed"}, CreatedAt: now},
		{ID: node.Generate(), QuoteID: quoteID, Type: quotedomain.EventSent, Meta: datatypes.JSONMap{"to_email": "anna.andersson@example.com"}, CreatedAt: now},
	}
	for _, event := range events {
		if err := tx.WithContext(ctx).Create(event).Error; err != nil {
			return "", err
		}
	}

	return token, nil
}

func newPublicToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
