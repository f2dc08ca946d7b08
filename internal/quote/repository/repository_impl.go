package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quote *domain.Quote) error {
	if quote == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(quote).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Quote, error) {
	var q domain.Quote
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Limit(1).
		Find(&q).Error
	if err != nil {
		return nil, err
	}
	if q.ID == 0 {
		return nil, nil
	}
	return &q, nil
}

func (r *repo) FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*domain.Quote, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var q domain.Quote
	err := db.WithContext(ctx).
		Where("public_token = ?", token).
		Limit(1).
		Find(&q).Error
	if err != nil {
		return nil, err
	}
	if q.ID == 0 {
		return nil, nil
	}
	return &q, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrQuoteNotFound
	}
	return nil
}

func (r *repo) NextSeq(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(seq), 0) + 1
		 FROM quotes
		 WHERE company_id = ?`,
		companyID,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []*domain.QuoteItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]domain.QuoteItem, error) {
	var items []domain.QuoteItem
	err := db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("sort ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM quote_items WHERE quote_id = ?`,
		quoteID,
	).Error
}

func (r *repo) ReplaceSelection(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, selectedIDs []snowflake.ID) error {
	err := db.WithContext(ctx).Exec(
		`UPDATE quote_items
		 SET is_selected = ?
		 WHERE quote_id = ? AND is_optional = ?`,
		false,
		quoteID,
		true,
	).Error
	if err != nil {
		return err
	}
	if len(selectedIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE quote_items
		 SET is_selected = ?
		 WHERE quote_id = ? AND id IN ?`,
		true,
		quoteID,
		selectedIDs,
	).Error
}

func (r *repo) InsertPackage(ctx context.Context, db *gorm.DB, pkg *domain.QuotePackage) error {
	if pkg == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(pkg).Error
}

func (r *repo) ListPackages(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]domain.QuotePackage, error) {
	var pkgs []domain.QuotePackage
	err := db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("is_default DESC, created_at ASC, id ASC").
		Find(&pkgs).Error
	if err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (r *repo) FindPackage(ctx context.Context, db *gorm.DB, quoteID, packageID snowflake.ID) (*domain.QuotePackage, error) {
	var pkg domain.QuotePackage
	err := db.WithContext(ctx).
		Where("quote_id = ? AND id = ?", quoteID, packageID).
		Limit(1).
		Find(&pkg).Error
	if err != nil {
		return nil, err
	}
	if pkg.ID == 0 {
		return nil, nil
	}
	return &pkg, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.QuoteEvent) error {
	if event == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]domain.QuoteEvent, error) {
	var events []domain.QuoteEvent
	err := db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at DESC, id DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) HasEvent(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, eventType domain.EventType) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.QuoteEvent{}).
		Where("quote_id = ? AND type = ?", quoteID, eventType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
