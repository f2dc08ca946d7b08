package migration

import (
	"gorm.io/gorm"

	authdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/auth/domain"
	companydomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	generationdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
)

// AutoMigrate builds the schema through gorm for dialects the SQL
// migrations do not cover, which keeps local sqlite runs working.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&companydomain.Company{},
		&authdomain.User{},
		&authdomain.Session{},
		&pricingdomain.PriceProfile{},
		&pricingdomain.LaborRate{},
		&pricingdomain.Material{},
		&quotedomain.Quote{},
		&quotedomain.QuoteItem{},
		&quotedomain.QuotePackage{},
		&quotedomain.QuoteEvent{},
		&requirementsdomain.ProjectRequirements{},
		&generationdomain.GenerationRule{},
		&tuningdomain.QuoteAdjustmentLog{},
		&tuningdomain.TuningStat{},
		&tuningdomain.AutoTuningPattern{},
	)
}
