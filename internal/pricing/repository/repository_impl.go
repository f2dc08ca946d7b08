package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db/option"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProfile(ctx context.Context, db *gorm.DB, profile *domain.PriceProfile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_profiles (id, company_id, name, currency, vat_rate, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.CompanyID,
		profile.Name,
		profile.Currency,
		profile.VATRate,
		profile.IsDefault,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Error
}

func (r *repo) FindProfileByID(ctx context.Context, db *gorm.DB, companyID, id int64) (*domain.PriceProfile, error) {
	var p domain.PriceProfile
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, name, currency, vat_rate, is_default, created_at, updated_at
		 FROM price_profiles WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindDefaultProfile(ctx context.Context, db *gorm.DB, companyID int64) (*domain.PriceProfile, error) {
	var p domain.PriceProfile
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, name, currency, vat_rate, is_default, created_at, updated_at
		 FROM price_profiles WHERE company_id = ? AND is_default = ?
		 ORDER BY created_at ASC LIMIT 1`,
		companyID,
		true,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListProfiles(ctx context.Context, db *gorm.DB, companyID int64) ([]domain.PriceProfile, error) {
	var items []domain.PriceProfile
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, name, currency, vat_rate, is_default, created_at, updated_at
		 FROM price_profiles WHERE company_id = ? ORDER BY created_at ASC`,
		companyID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateProfile(ctx context.Context, db *gorm.DB, profile *domain.PriceProfile) error {
	if profile == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE price_profiles
		 SET name = ?, currency = ?, vat_rate = ?, is_default = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		profile.Name,
		profile.Currency,
		profile.VATRate,
		profile.IsDefault,
		profile.UpdatedAt,
		profile.CompanyID,
		profile.ID,
	).Error
}

func (r *repo) InsertLaborRate(ctx context.Context, db *gorm.DB, rate *domain.LaborRate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO labor_rates (id, company_id, profile_id, code, description, unit, unit_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.CompanyID,
		rate.ProfileID,
		rate.Code,
		rate.Description,
		rate.Unit,
		rate.UnitPrice,
		rate.CreatedAt,
		rate.UpdatedAt,
	).Error
}

func (r *repo) FindLaborRateByID(ctx context.Context, db *gorm.DB, companyID, id int64) (*domain.LaborRate, error) {
	var rate domain.LaborRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, profile_id, code, description, unit, unit_price, created_at, updated_at
		 FROM labor_rates WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repo) FindLaborRateByCode(ctx context.Context, db *gorm.DB, companyID int64, code string) (*domain.LaborRate, error) {
	var rate domain.LaborRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, profile_id, code, description, unit, unit_price, created_at, updated_at
		 FROM labor_rates WHERE company_id = ? AND code = ?`,
		companyID,
		code,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repo) ListLaborRates(ctx context.Context, db *gorm.DB, companyID int64, filter domain.ListFilter) ([]domain.LaborRate, error) {
	var items []domain.LaborRate
	stmt := db.WithContext(ctx).
		Model(&domain.LaborRate{}).
		Where("company_id = ?", companyID)

	if search := strings.TrimSpace(filter.Search); search != "" {
		stmt = stmt.Where("code LIKE ? OR description LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"code":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateLaborRate(ctx context.Context, db *gorm.DB, rate *domain.LaborRate) error {
	if rate == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE labor_rates
		 SET description = ?, unit = ?, unit_price = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		rate.Description,
		rate.Unit,
		rate.UnitPrice,
		rate.UpdatedAt,
		rate.CompanyID,
		rate.ID,
	).Error
}

func (r *repo) DeleteLaborRate(ctx context.Context, db *gorm.DB, companyID, id int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM labor_rates WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Error
}

func (r *repo) InsertMaterial(ctx context.Context, db *gorm.DB, material *domain.Material) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO materials (id, company_id, profile_id, sku, name, unit, unit_cost, markup_pct, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		material.ID,
		material.CompanyID,
		material.ProfileID,
		material.SKU,
		material.Name,
		material.Unit,
		material.UnitCost,
		material.MarkupPct,
		material.CreatedAt,
		material.UpdatedAt,
	).Error
}

func (r *repo) FindMaterialByID(ctx context.Context, db *gorm.DB, companyID, id int64) (*domain.Material, error) {
	var m domain.Material
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, profile_id, sku, name, unit, unit_cost, markup_pct, created_at, updated_at
		 FROM materials WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) FindMaterialBySKU(ctx context.Context, db *gorm.DB, companyID int64, sku string) (*domain.Material, error) {
	var m domain.Material
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, profile_id, sku, name, unit, unit_cost, markup_pct, created_at, updated_at
		 FROM materials WHERE company_id = ? AND sku = ?`,
		companyID,
		sku,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) ListMaterials(ctx context.Context, db *gorm.DB, companyID int64, filter domain.ListFilter) ([]domain.Material, error) {
	var items []domain.Material
	stmt := db.WithContext(ctx).
		Model(&domain.Material{}).
		Where("company_id = ?", companyID)

	if search := strings.TrimSpace(filter.Search); search != "" {
		stmt = stmt.Where("sku LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"sku":        true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateMaterial(ctx context.Context, db *gorm.DB, material *domain.Material) error {
	if material == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE materials
		 SET name = ?, unit = ?, unit_cost = ?, markup_pct = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		material.Name,
		material.Unit,
		material.UnitCost,
		material.MarkupPct,
		material.UpdatedAt,
		material.CompanyID,
		material.ID,
	).Error
}

func (r *repo) DeleteMaterial(ctx context.Context, db *gorm.DB, companyID, id int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM materials WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Error
}
