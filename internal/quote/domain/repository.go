package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quote *Quote) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Quote, error)
	FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*Quote, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	// NextSeq returns the next quote sequence for a company. Callers
	// run it inside the insert transaction so numbers stay gapless.
	NextSeq(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error)

	InsertItems(ctx context.Context, db *gorm.DB, items []*QuoteItem) error
	ListItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]QuoteItem, error)
	DeleteItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) error

	// ReplaceSelection persists a full optional-item selection: every
	// optional line of the quote ends up selected iff its ID is listed.
	ReplaceSelection(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, selectedIDs []snowflake.ID) error

	InsertPackage(ctx context.Context, db *gorm.DB, pkg *QuotePackage) error
	ListPackages(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]QuotePackage, error)
	FindPackage(ctx context.Context, db *gorm.DB, quoteID, packageID snowflake.ID) (*QuotePackage, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *QuoteEvent) error
	ListEvents(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]QuoteEvent, error)
	HasEvent(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, eventType EventType) (bool, error)
}
