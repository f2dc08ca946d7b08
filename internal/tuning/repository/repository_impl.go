package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, log *domain.QuoteAdjustmentLog) error {
	if log == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) ListLogsByQuote(ctx context.Context, db *gorm.DB, companyID, quoteID snowflake.ID) ([]domain.QuoteAdjustmentLog, error) {
	var rows []domain.QuoteAdjustmentLog
	err := db.WithContext(ctx).
		Where("company_id = ? AND quote_id = ?", companyID, quoteID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListRecentLogs(ctx context.Context, db *gorm.DB, companyID snowflake.ID, itemRef string, limit int) ([]domain.QuoteAdjustmentLog, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []domain.QuoteAdjustmentLog
	err := db.WithContext(ctx).
		Where("company_id = ? AND item_ref = ?", companyID, itemRef).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindStat(ctx context.Context, db *gorm.DB, companyID snowflake.ID, key, itemRef string) (*domain.TuningStat, error) {
	var stat domain.TuningStat
	err := db.WithContext(ctx).
		Where("company_id = ? AND key = ? AND item_ref = ?", companyID, key, itemRef).
		Limit(1).
		Find(&stat).Error
	if err != nil {
		return nil, err
	}
	if stat.CompanyID == 0 {
		return nil, nil
	}
	return &stat, nil
}

func (r *repo) ListStats(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.TuningStat, error) {
	var rows []domain.TuningStat
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("key ASC, item_ref ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) SaveStat(ctx context.Context, db *gorm.DB, stat *domain.TuningStat) error {
	if stat == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"},
				{Name: "key"},
				{Name: "item_ref"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"median_factor", "n", "updated_at"}),
		}).
		Create(stat).Error
}

func (r *repo) FindPattern(ctx context.Context, db *gorm.DB, companyID snowflake.ID, patternKey string) (*domain.AutoTuningPattern, error) {
	var pattern domain.AutoTuningPattern
	err := db.WithContext(ctx).
		Where("company_id = ? AND pattern_key = ?", companyID, patternKey).
		Limit(1).
		Find(&pattern).Error
	if err != nil {
		return nil, err
	}
	if pattern.ID == 0 {
		return nil, nil
	}
	return &pattern, nil
}

func (r *repo) ListPatterns(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.AutoTuningPattern, error) {
	var rows []domain.AutoTuningPattern
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("confidence_score DESC, pattern_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertPattern(ctx context.Context, db *gorm.DB, pattern *domain.AutoTuningPattern) error {
	if pattern == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(pattern).Error
}

func (r *repo) UpdatePattern(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := db.WithContext(ctx).
		Model(&domain.AutoTuningPattern{}).
		Where("id = ?", id).
		Updates(fields)
	return result.Error
}

func (r *repo) FindRequirementsKey(ctx context.Context, db *gorm.DB, companyID, quoteID snowflake.ID) (*domain.RequirementsKey, error) {
	if companyID == 0 || quoteID == 0 {
		return nil, nil
	}

	var row struct {
		RoomType    string
		FinishLevel string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT room_type, finish_level
		 FROM project_requirements
		 WHERE company_id = ? AND quote_id = ?
		 LIMIT 1`,
		companyID, quoteID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.RoomType == "" {
		return nil, nil
	}
	return &domain.RequirementsKey{RoomType: row.RoomType, FinishLevel: row.FinishLevel}, nil
}
