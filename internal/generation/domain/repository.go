package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRule(ctx context.Context, db *gorm.DB, rule *GenerationRule) error
	FindRuleByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*GenerationRule, error)
	FindRuleByKey(ctx context.Context, db *gorm.DB, companyID snowflake.ID, key string) (*GenerationRule, error)
	ListRules(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]GenerationRule, error)
	UpdateRuleFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteRule(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) error
}
