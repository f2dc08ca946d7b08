package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertLog(ctx context.Context, db *gorm.DB, log *QuoteAdjustmentLog) error
	ListLogsByQuote(ctx context.Context, db *gorm.DB, companyID, quoteID snowflake.ID) ([]QuoteAdjustmentLog, error)
	ListRecentLogs(ctx context.Context, db *gorm.DB, companyID snowflake.ID, itemRef string, limit int) ([]QuoteAdjustmentLog, error)

	FindStat(ctx context.Context, db *gorm.DB, companyID snowflake.ID, key, itemRef string) (*TuningStat, error)
	ListStats(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]TuningStat, error)
	SaveStat(ctx context.Context, db *gorm.DB, stat *TuningStat) error

	FindPattern(ctx context.Context, db *gorm.DB, companyID snowflake.ID, patternKey string) (*AutoTuningPattern, error)
	ListPatterns(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]AutoTuningPattern, error)
	InsertPattern(ctx context.Context, db *gorm.DB, pattern *AutoTuningPattern) error
	UpdatePattern(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	// FindRequirementsKey resolves the room/finish pair of the intake
	// linked to a quote, or nil when the quote has no intake. Both
	// learning loops key their entries on it.
	FindRequirementsKey(ctx context.Context, db *gorm.DB, companyID, quoteID snowflake.ID) (*RequirementsKey, error)
}
