package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/generation/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRule(ctx context.Context, db *gorm.DB, rule *domain.GenerationRule) error {
	if rule == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) FindRuleByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.GenerationRule, error) {
	var rule domain.GenerationRule
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) FindRuleByKey(ctx context.Context, db *gorm.DB, companyID snowflake.ID, key string) (*domain.GenerationRule, error) {
	var rule domain.GenerationRule
	err := db.WithContext(ctx).
		Where("company_id = ? AND key = ?", companyID, key).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.GenerationRule, error) {
	var rules []domain.GenerationRule
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("key ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) UpdateRuleFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := db.WithContext(ctx).
		Model(&domain.GenerationRule{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) DeleteRule(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) error {
	result := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&domain.GenerationRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
