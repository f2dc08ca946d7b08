package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, row *ProjectRequirements) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*ProjectRequirements, error)
	FindByQuote(ctx context.Context, db *gorm.DB, companyID, quoteID snowflake.ID) (*ProjectRequirements, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]ProjectRequirements, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) error
}
