package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	publicquotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/domain"
)

type repo struct{}

func Provide() publicquotedomain.Repository {
	return &repo{}
}

func (r *repo) FindQuoteByToken(
	ctx context.Context,
	db *gorm.DB,
	token string,
) (*publicquotedomain.QuoteRecord, error) {
	token = strings.TrimSpace(token)
	if db == nil || token == "" {
		return nil, nil
	}

	query := `
		SELECT q.id, q.company_id, q.quote_number, q.customer_name, q.project_name,
			q.profile_id, q.currency, q.status, q.public_token, q.option_group_modes,
			q.subtotal, q.vat, q.total, q.accepted_package_id, q.created_at,
			c.name AS company_name
		FROM quotes q
		JOIN companies c ON c.id = q.company_id
		WHERE q.public_token = ?
		LIMIT 1`

	var row publicquotedomain.QuoteRecord
	if err := db.WithContext(ctx).Raw(query, token).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}
